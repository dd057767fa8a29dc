package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PlanRepo)(nil)

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

const planColumns = `id, code, owner_id, price, mint, term, settlement_account, payout_account, active_subscriptions, created_at`

func (r *PlanRepo) Create(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		plan.ID, plan.Code, plan.Owner, plan.Price, plan.Mint, string(plan.Term),
		plan.SettlementAccount, plan.PayoutAccount, plan.ActiveSubscriptions, plan.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id = $1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *PlanRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id = $1 FOR UPDATE;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *PlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans ORDER BY created_at;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateActiveSubscriptions adjusts the counter, flooring at zero in SQL so
// the invariant holds even if callers race.
func (r *PlanRepo) UpdateActiveSubscriptions(ctx context.Context, tx repository.Tx, id string, delta int32) error {
	const q = `
UPDATE plans
   SET active_subscriptions = GREATEST(active_subscriptions + $2, 0)
 WHERE id = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	ct, err := ex.Exec(ctx, q, id, delta)
	if err != nil {
		return fmt.Errorf("update active subscriptions: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PlanRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Plan, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(ex.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	var term string
	if err := row.Scan(&p.ID, &p.Code, &p.Owner, &p.Price, &p.Mint, &term,
		&p.SettlementAccount, &p.PayoutAccount, &p.ActiveSubscriptions, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Term = model.Term(term)
	return &p, nil
}
