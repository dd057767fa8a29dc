package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// PlanRepository is the port for plan persistence. Plans are keyed by their
// derived address; Create fails with domain.ErrAlreadyExists if a record
// already sits at that address.
type PlanRepository interface {
	Create(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// FindByIDForUpdate locks the row for the remainder of the transaction.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
	// UpdateActiveSubscriptions adjusts the counter by delta, flooring at zero.
	UpdateActiveSubscriptions(ctx context.Context, tx Tx, id string, delta int32) error
}
