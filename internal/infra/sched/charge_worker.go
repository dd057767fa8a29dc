// File: internal/infra/sched/charge_worker.go
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"
	"subscription-billing/internal/infra/redis"
	"subscription-billing/internal/usecase"
)

const crankLockKey = "crank:charge-sweep"

// Charger is the slice of the charge use case the worker needs.
type Charger interface {
	Charge(ctx context.Context, subscriptionID string) (*usecase.ChargeResult, error)
}

// ChargeWorker sweeps due subscriptions on a cron schedule and charges
// each one. A redis lock keeps concurrent crank instances from walking
// the same batch.
type ChargeWorker struct {
	cfg     config.CrankConfig
	subs    repository.SubscriptionRepository
	charger Charger
	locker  redis.Locker
	log     *zerolog.Logger
}

func NewChargeWorker(cfg config.CrankConfig, subs repository.SubscriptionRepository, charger Charger, locker redis.Locker, logger *zerolog.Logger) *ChargeWorker {
	wlog := logger.With().Str("component", "ChargeWorker").Logger()
	return &ChargeWorker{
		cfg:     cfg,
		subs:    subs,
		charger: charger,
		locker:  locker,
		log:     &wlog,
	}
}

// Run blocks until ctx is cancelled.
func (w *ChargeWorker) Run(ctx context.Context) error {
	w.log.Info().Str("cron", w.cfg.Cron).Int("batch_size", w.cfg.BatchSize).Msg("starting charge worker")

	c := cron.New()
	if _, err := c.AddFunc(w.cfg.Cron, func() { w.Sweep(ctx) }); err != nil {
		return err
	}
	c.Start()

	<-ctx.Done()
	w.log.Info().Msg("stopping charge worker")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// Sweep charges every subscription whose term date has arrived, up to the
// configured batch size. Each charge runs in its own transaction so one
// failing subscription never blocks the rest of the batch.
func (w *ChargeWorker) Sweep(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, crankLockKey, w.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			w.log.Debug().Msg("sweep already running elsewhere")
			return
		}
		w.log.Error().Err(err).Msg("acquire sweep lock")
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, crankLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("release sweep lock")
		}
	}()

	due, err := w.subs.ListDue(ctx, nil, time.Now(), w.cfg.BatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list due subscriptions")
		return
	}
	if len(due) == 0 {
		return
	}

	var charged, pastDue, failed int
	for _, sub := range due {
		start := time.Now()
		res, err := w.charger.Charge(ctx, sub.ID)
		metrics.ObserveChargeLatency(time.Since(start).Milliseconds())
		switch {
		case err == nil && res.Outcome == usecase.ChargeOutcomeCharged:
			charged++
			metrics.IncCharge(string(res.Outcome))
			metrics.AddFundsMoved("tax", res.Tax)
			metrics.AddFundsMoved("payout", res.OwnerPayout)
		case err == nil:
			pastDue++
			metrics.IncCharge(string(res.Outcome))
			w.log.Info().Str("subscription_id", sub.ID).Msg("subscription past due")
		case errors.Is(err, domain.ErrSubscriptionNotReady):
			// A stale ListDue read; the next sweep will pick it up.
		default:
			failed++
			metrics.IncCharge("failed")
			w.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("charge failed")
		}
	}
	w.log.Info().
		Int("due", len(due)).
		Int("charged", charged).
		Int("past_due", pastDue).
		Int("failed", failed).
		Msg("sweep finished")

	w.refreshStateGauges(ctx)
}

func (w *ChargeWorker) refreshStateGauges(ctx context.Context) {
	counts, err := w.subs.CountByState(ctx, nil)
	if err != nil {
		w.log.Warn().Err(err).Msg("count subscriptions by state")
		return
	}
	metrics.SetSubscriptionsTotal(counts)
}
