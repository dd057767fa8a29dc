// File: internal/usecase/subscription_uc.go
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

// SubscriptionUseCase implements enrollment and the lifecycle transitions
// (cancel, uncancel, close). Charging lives in ChargeUseCase.
type SubscriptionUseCase struct {
	plans  repository.PlanRepository
	subs   repository.SubscriptionRepository
	ledger adapter.TokenLedger
	txm    repository.TransactionManager
	now    func() time.Time
}

func NewSubscriptionUseCase(plans repository.PlanRepository, subs repository.SubscriptionRepository, ledger adapter.TokenLedger, txm repository.TransactionManager) *SubscriptionUseCase {
	return &SubscriptionUseCase{plans: plans, subs: subs, ledger: ledger, txm: txm, now: time.Now}
}

// CloseResult reports the three-way split performed by Close. All amounts are
// zero when the paid term was fully consumed.
type CloseResult struct {
	Refund      int64
	OwnerPayout int64
	Tax         int64
}

// Create enrolls caller against a plan: grants the subscription's escrow
// authority a capped spending delegation over the funding account, then moves
// the first term's price into the plan's settlement account. The delegation
// cap bounds worst-case drain even if the engine were later compromised.
//
// One atomic step with the plan's active-subscription increment; fails with
// domain.ErrAlreadyExists if caller is already enrolled on this plan.
func (uc *SubscriptionUseCase) Create(ctx context.Context, caller, planID, payerTokenAccount string, delegationAmount int64) (*model.Subscription, error) {
	if caller == "" || delegationAmount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	var created *model.Subscription
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		plan, err := uc.plans.FindByIDForUpdate(ctx, tx, planID)
		if err != nil {
			return err
		}
		payer, err := uc.ledger.GetAccount(ctx, tx, payerTokenAccount)
		if err != nil {
			return err
		}
		if payer.Mint != plan.Mint {
			return domain.ErrMintMismatch
		}
		if payer.OwnerAuthority != caller {
			return domain.ErrUnauthorized
		}

		id := authority.SubscriptionAddress(caller, plan.ID)
		sub, err := model.NewSubscription(id, plan, caller, payerTokenAccount, uc.now())
		if err != nil {
			return err
		}
		if err := uc.subs.Create(ctx, tx, sub); err != nil {
			return err
		}
		if err := uc.plans.UpdateActiveSubscriptions(ctx, tx, plan.ID, 1); err != nil {
			return err
		}
		// The initial delegation and first-term payment are the only fund
		// movements ever authorized by the subscriber's own identity.
		if err := uc.ledger.Approve(ctx, tx, payerTokenAccount, authority.Subscription(caller, plan.ID), delegationAmount, authority.Signer(caller)); err != nil {
			return err
		}
		if err := uc.ledger.Transfer(ctx, tx, payerTokenAccount, plan.SettlementAccount, authority.Signer(caller), plan.Price); err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Cancel marks intent to stop. Billing is not stopped: the subscription stays
// chargeable until closed.
func (uc *SubscriptionUseCase) Cancel(ctx context.Context, caller, subscriptionID string) (*model.Subscription, error) {
	return uc.transition(ctx, caller, subscriptionID, (*model.Subscription).Cancel)
}

// Uncancel reverts a pending cancellation.
func (uc *SubscriptionUseCase) Uncancel(ctx context.Context, caller, subscriptionID string) (*model.Subscription, error) {
	return uc.transition(ctx, caller, subscriptionID, (*model.Subscription).Uncancel)
}

func (uc *SubscriptionUseCase) transition(ctx context.Context, caller, subscriptionID string, apply func(*model.Subscription) error) (*model.Subscription, error) {
	var out *model.Subscription
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subs.FindByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Owner != caller {
			return domain.ErrUnauthorized
		}
		if err := apply(sub); err != nil {
			return err
		}
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close terminates the enrollment from any state. If the paid term is only
// partially consumed, the subscriber is refunded pro rata and the owner is
// paid out the consumed share minus fee; otherwise no funds move. The
// standing delegation is revoked and the record destroyed either way.
func (uc *SubscriptionUseCase) Close(ctx context.Context, caller, subscriptionID string) (*CloseResult, error) {
	res := &CloseResult{}
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subs.FindByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Owner != caller {
			return domain.ErrUnauthorized
		}
		plan, err := uc.plans.FindByIDForUpdate(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}
		if err := uc.plans.UpdateActiveSubscriptions(ctx, tx, plan.ID, -1); err != nil {
			return err
		}

		now := uc.now()
		if now.Before(sub.NextTermDate) {
			remaining := sub.NextTermDate.Unix() - now.Unix()
			res.Refund = prorate(plan.Price, remaining, plan.Term.Seconds())
			ownerShare := plan.Price - res.Refund
			res.Tax = fee(ownerShare)
			res.OwnerPayout = ownerShare - res.Tax

			planAuth := authority.Plan(plan.Owner, plan.Code)
			if res.Refund > 0 {
				if err := uc.ledger.Transfer(ctx, tx, plan.SettlementAccount, sub.PayerTokenAccount, planAuth, res.Refund); err != nil {
					return err
				}
			}
			if res.OwnerPayout > 0 {
				if err := uc.ledger.Transfer(ctx, tx, plan.SettlementAccount, plan.PayoutAccount, planAuth, res.OwnerPayout); err != nil {
					return err
				}
			}
			if res.Tax > 0 {
				if err := uc.ledger.Transfer(ctx, tx, plan.SettlementAccount, feeAccount(plan.Mint), planAuth, res.Tax); err != nil {
					return err
				}
			}
		}

		if err := uc.ledger.Revoke(ctx, tx, sub.PayerTokenAccount, authority.Signer(caller)); err != nil {
			return err
		}
		return uc.subs.Delete(ctx, tx, sub.ID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Get returns one subscription by address.
func (uc *SubscriptionUseCase) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return uc.subs.FindByID(ctx, nil, id)
}
