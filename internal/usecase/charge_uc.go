// File: internal/usecase/charge_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/authority"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

type ChargeOutcome string

const (
	// ChargeOutcomeCharged: the term was settled and the due date advanced.
	ChargeOutcomeCharged ChargeOutcome = "charged"
	// ChargeOutcomePastDue: the funding account could not cover the price.
	// This is a soft failure, not an error: no funds moved, the due date is
	// frozen, and the caller may simply retry after the balance recovers.
	ChargeOutcomePastDue ChargeOutcome = "past_due"
)

// ChargeResult reports what a charge attempt did.
type ChargeResult struct {
	Outcome      ChargeOutcome
	Tax          int64
	OwnerPayout  int64
	NextTermDate time.Time
	State        model.SubscriptionState
}

// ChargeUseCase implements the periodic billing operation. Any caller may
// invoke it; the intended caller is an external scheduler, and the
// gate-then-mutate ordering makes free retries safe.
type ChargeUseCase struct {
	plans  repository.PlanRepository
	subs   repository.SubscriptionRepository
	ledger adapter.TokenLedger
	txm    repository.TransactionManager
	now    func() time.Time
}

func NewChargeUseCase(plans repository.PlanRepository, subs repository.SubscriptionRepository, ledger adapter.TokenLedger, txm repository.TransactionManager) *ChargeUseCase {
	return &ChargeUseCase{plans: plans, subs: subs, ledger: ledger, txm: txm, now: time.Now}
}

// Charge settles one term if it is due.
//
// Before the due date it fails with domain.ErrSubscriptionNotReady and
// changes nothing. At or after the due date it moves price from the funding
// account into settlement under the subscription authority, pays the owner
// price-fee and the fee collector the fee under the plan authority, then
// advances the due date by exactly one term. If any leg fails the whole
// transaction aborts and the date stays put.
//
// Note the state machine does not consult PendingCancellation here: a
// cancelled-but-not-closed subscription keeps billing until closed.
func (uc *ChargeUseCase) Charge(ctx context.Context, subscriptionID string) (*ChargeResult, error) {
	res := &ChargeResult{}
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subs.FindByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		plan, err := uc.plans.FindByIDForUpdate(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}

		if uc.now().Before(sub.NextTermDate) {
			return domain.ErrSubscriptionNotReady
		}

		balance, err := uc.ledger.Balance(ctx, tx, sub.PayerTokenAccount)
		if err != nil {
			return err
		}
		if balance < plan.Price {
			// Soft failure: mark past due, freeze the date, move nothing.
			// The subscriber accrues no stacked liability while underfunded.
			sub.State = model.SubscriptionStatePastDue
			if err := uc.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
			res.Outcome = ChargeOutcomePastDue
			res.NextTermDate = sub.NextTermDate
			res.State = sub.State
			return nil
		}

		subAuth := authority.Subscription(sub.Owner, plan.ID)
		planAuth := authority.Plan(plan.Owner, plan.Code)
		tax := fee(plan.Price)

		if err := uc.ledger.Transfer(ctx, tx, sub.PayerTokenAccount, plan.SettlementAccount, subAuth, plan.Price); err != nil {
			return err
		}
		if err := uc.ledger.Transfer(ctx, tx, plan.SettlementAccount, plan.PayoutAccount, planAuth, plan.Price-tax); err != nil {
			return err
		}
		if tax > 0 {
			if err := uc.ledger.Transfer(ctx, tx, plan.SettlementAccount, feeAccount(plan.Mint), planAuth, tax); err != nil {
				return err
			}
		}

		// Exactly one term, from the previous due date; a catch-up charge
		// after past-due advances once, never twice.
		sub.NextTermDate = sub.NextTermDate.Add(plan.Term.Duration())
		if sub.State == model.SubscriptionStatePastDue {
			sub.State = model.SubscriptionStateActive
		}
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return err
		}

		res.Outcome = ChargeOutcomeCharged
		res.Tax = tax
		res.OwnerPayout = plan.Price - tax
		res.NextTermDate = sub.NextTermDate
		res.State = sub.State
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
