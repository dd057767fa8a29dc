// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/authority"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

// FeeCollector is the compiled-in identity that receives the settlement fee.
// It is validated at transfer time as the owner of the per-mint fee account;
// it is deliberately not a runtime parameter.
const FeeCollector = "d6f1a1c0-4b0e-4b7e-9c3a-7f25f1b0a9d4"

// feeAccount is the fee collector's token account for one settlement asset.
// Deterministic so every plan on the same mint settles fees into one place.
func feeAccount(mint string) string { return "fee:" + mint }

// settlementAccount holds a plan's escrowed funds; controlled by the plan's
// derived authority, never by a signing key.
func settlementAccount(planID string) string { return "settle:" + planID }

// PlanUseCase implements plan registration and reads.
type PlanUseCase struct {
	plans  repository.PlanRepository
	ledger adapter.TokenLedger
	txm    repository.TransactionManager
	now    func() time.Time
}

func NewPlanUseCase(plans repository.PlanRepository, ledger adapter.TokenLedger, txm repository.TransactionManager) *PlanUseCase {
	return &PlanUseCase{plans: plans, ledger: ledger, txm: txm, now: time.Now}
}

// Create registers a plan owned by caller, opens its settlement account under
// the plan's escrow authority, and makes sure the fee collector can be paid
// in the plan's settlement asset. Fails with domain.ErrAlreadyExists if the
// caller already has a plan under the same code.
func (uc *PlanUseCase) Create(ctx context.Context, caller, code string, price int64, term model.Term, mint, payoutAccount string) (*model.Plan, error) {
	if caller == "" {
		return nil, domain.ErrInvalidArgument
	}
	var created *model.Plan
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		payout, err := uc.ledger.GetAccount(ctx, tx, payoutAccount)
		if err != nil {
			return err
		}
		if payout.Mint != mint {
			return domain.ErrMintMismatch
		}
		if payout.OwnerAuthority != caller {
			return domain.ErrUnauthorized
		}

		id := authority.PlanAddress(caller, code)
		plan, err := model.NewPlan(id, code, caller, price, mint, term, settlementAccount(id), payoutAccount)
		if err != nil {
			return err
		}
		if err := uc.plans.Create(ctx, tx, plan); err != nil {
			return err
		}
		if err := uc.ledger.OpenAccount(ctx, tx, plan.SettlementAccount, mint, authority.Plan(caller, code)); err != nil {
			return err
		}
		if err := uc.ledger.OpenAccount(ctx, tx, feeAccount(mint), mint, authority.Signer(FeeCollector)); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		created = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.Plan, error) {
	return uc.plans.FindByID(ctx, nil, id)
}

func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	return uc.plans.ListAll(ctx, nil)
}
