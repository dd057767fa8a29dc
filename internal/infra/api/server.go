// File: internal/infra/api/server.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-billing/internal/usecase"
)

// Server exposes the billing operations over HTTP. The token subject is
// the caller for every ownership-checked operation.
type Server struct {
	planUC   *usecase.PlanUseCase
	subUC    *usecase.SubscriptionUseCase
	chargeUC *usecase.ChargeUseCase
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(planUC *usecase.PlanUseCase, subUC *usecase.SubscriptionUseCase, chargeUC *usecase.ChargeUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{
		planUC:   planUC,
		subUC:    subUC,
		chargeUC: chargeUC,
		auth:     auth,
		log:      logger,
	}
}

// Routes builds the router with the full middleware chain attached.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log), Timeout(15*time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RequireAuth)

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", s.handlePlanCreate)
			r.Get("/", s.handlePlanList)
			r.Get("/{planID}", s.handlePlanGet)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", s.handleSubscriptionCreate)
			r.Get("/{subID}", s.handleSubscriptionGet)
			r.Delete("/{subID}", s.handleSubscriptionClose)
			r.Post("/{subID}/cancel", s.handleSubscriptionCancel)
			r.Post("/{subID}/uncancel", s.handleSubscriptionUncancel)
			r.Post("/{subID}/charge", s.handleCharge)
		})
	})
	return r
}
