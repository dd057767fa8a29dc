package repository

import (
	"context"
	"time"

	"subscription-billing/internal/domain/model"
)

// SubscriptionRepository is the port for subscription persistence.
// Subscriptions are keyed by their derived address.
type SubscriptionRepository interface {
	Create(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindByIDForUpdate locks the row for the remainder of the transaction.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	// Delete removes the record; close is terminal and reclaims storage.
	Delete(ctx context.Context, tx Tx, id string) error

	// ListDue returns up to limit subscriptions whose next term date is at or
	// before now. Used by the external charge crank, never by the core.
	ListDue(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	CountByState(ctx context.Context, tx Tx) (map[model.SubscriptionState]int, error)
}
