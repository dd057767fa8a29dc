package model

import (
	"time"

	"subscription-billing/internal/domain"
)

type SubscriptionState string

const (
	SubscriptionStateActive              SubscriptionState = "active"
	SubscriptionStatePendingCancellation SubscriptionState = "pending_cancellation"
	SubscriptionStatePastDue             SubscriptionState = "past_due"
)

func (s SubscriptionState) Valid() bool {
	switch s {
	case SubscriptionStateActive, SubscriptionStatePendingCancellation, SubscriptionStatePastDue:
		return true
	}
	return false
}

// Subscription represents one subscriber's enrollment against one plan.
//
// NextTermDate only ever increases, and only by exactly one term length per
// successful charge. Close deletes the record; there is no closed state.
type Subscription struct {
	ID                string // derived address over (Owner, PlanID)
	PlanID            string
	Owner             string // the subscriber
	PayerTokenAccount string // subscriber's funding account, also the refund destination
	NextTermDate      time.Time
	State             SubscriptionState
	CreatedAt         time.Time
}

// NewSubscription constructs an active subscription whose first term starts now.
// The first term's price is paid at creation, so the next charge is one full
// term away.
func NewSubscription(id string, plan *Plan, owner, payerTokenAccount string, now time.Time) (*Subscription, error) {
	if id == "" || plan.IsZero() || owner == "" || payerTokenAccount == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:                id,
		PlanID:            plan.ID,
		Owner:             owner,
		PayerTokenAccount: payerTokenAccount,
		NextTermDate:      now.Add(plan.Term.Duration()),
		State:             SubscriptionStateActive,
		CreatedAt:         now,
	}, nil
}

// Cancel marks intent to stop. It does not stop billing; the subscription
// runs out its paid term and remains chargeable until closed.
func (s *Subscription) Cancel() error {
	if s.State != SubscriptionStateActive {
		return domain.ErrInvalidState
	}
	s.State = SubscriptionStatePendingCancellation
	return nil
}

// Uncancel reverts a pending cancellation.
func (s *Subscription) Uncancel() error {
	if s.State != SubscriptionStatePendingCancellation {
		return domain.ErrInvalidState
	}
	s.State = SubscriptionStateActive
	return nil
}
