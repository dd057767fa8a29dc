// File: internal/infra/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/infra/metrics"
)

type planCreateRequest struct {
	Code          string `json:"code"`
	Price         int64  `json:"price"`
	Term          string `json:"term"`
	Mint          string `json:"mint"`
	PayoutAccount string `json:"payout_account"`
}

type planResponse struct {
	ID                  string `json:"id"`
	Code                string `json:"code"`
	Owner               string `json:"owner"`
	Price               int64  `json:"price"`
	Mint                string `json:"mint"`
	Term                string `json:"term"`
	SettlementAccount   string `json:"settlement_account"`
	PayoutAccount       string `json:"payout_account"`
	ActiveSubscriptions int32  `json:"active_subscriptions"`
}

func toPlanResponse(p *model.Plan) planResponse {
	return planResponse{
		ID:                  p.ID,
		Code:                p.Code,
		Owner:               p.Owner,
		Price:               p.Price,
		Mint:                p.Mint,
		Term:                string(p.Term),
		SettlementAccount:   p.SettlementAccount,
		PayoutAccount:       p.PayoutAccount,
		ActiveSubscriptions: p.ActiveSubscriptions,
	}
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	term, err := model.ParseTerm(req.Term)
	if err != nil {
		http.Error(w, "Unknown term", http.StatusBadRequest)
		return
	}
	plan, err := s.planUC.Create(r.Context(), Caller(r.Context()), req.Code, req.Price, term, req.Mint, req.PayoutAccount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(plan))
}

func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planUC.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planUC.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

type subscriptionCreateRequest struct {
	PlanID            string `json:"plan_id"`
	PayerTokenAccount string `json:"payer_token_account"`
	DelegationAmount  int64  `json:"delegation_amount"`
}

type subscriptionResponse struct {
	ID                string    `json:"id"`
	PlanID            string    `json:"plan_id"`
	Owner             string    `json:"owner"`
	PayerTokenAccount string    `json:"payer_token_account"`
	NextTermDate      time.Time `json:"next_term_date"`
	State             string    `json:"state"`
}

func toSubscriptionResponse(sub *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                sub.ID,
		PlanID:            sub.PlanID,
		Owner:             sub.Owner,
		PayerTokenAccount: sub.PayerTokenAccount,
		NextTermDate:      sub.NextTermDate,
		State:             string(sub.State),
	}
}

func (s *Server) handleSubscriptionCreate(w http.ResponseWriter, r *http.Request) {
	var req subscriptionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := s.subUC.Create(r.Context(), Caller(r.Context()), req.PlanID, req.PayerTokenAccount, req.DelegationAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (s *Server) handleSubscriptionGet(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.Get(r.Context(), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleSubscriptionCancel(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.Cancel(r.Context(), Caller(r.Context()), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleSubscriptionUncancel(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.Uncancel(r.Context(), Caller(r.Context()), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

type closeResponse struct {
	Refund      int64 `json:"refund"`
	OwnerPayout int64 `json:"owner_payout"`
	Tax         int64 `json:"tax"`
}

func (s *Server) handleSubscriptionClose(w http.ResponseWriter, r *http.Request) {
	res, err := s.subUC.Close(r.Context(), Caller(r.Context()), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.AddRefund(res.Refund)
	writeJSON(w, http.StatusOK, closeResponse{
		Refund:      res.Refund,
		OwnerPayout: res.OwnerPayout,
		Tax:         res.Tax,
	})
}

type chargeResponse struct {
	Outcome      string    `json:"outcome"`
	Tax          int64     `json:"tax"`
	OwnerPayout  int64     `json:"owner_payout"`
	NextTermDate time.Time `json:"next_term_date"`
	State        string    `json:"state"`
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	res, err := s.chargeUC.Charge(r.Context(), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.IncCharge(string(res.Outcome))
	metrics.AddFundsMoved("payout", res.OwnerPayout)
	metrics.AddFundsMoved("tax", res.Tax)
	writeJSON(w, http.StatusOK, chargeResponse{
		Outcome:      string(res.Outcome),
		Tax:          res.Tax,
		OwnerPayout:  res.OwnerPayout,
		NextTermDate: res.NextTermDate,
		State:        string(res.State),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMintMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrSubscriptionNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrDelegationExceeded):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
