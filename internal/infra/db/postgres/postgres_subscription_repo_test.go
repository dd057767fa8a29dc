//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
)

func seedSubscription(t *testing.T, id string, due time.Time) *model.Subscription {
	t.Helper()
	ctx := context.Background()
	plans := NewPlanRepo(testPool)
	p := testPlan("plan-for-"+id, "code-"+id, "owner-"+id)
	if err := plans.Create(ctx, nil, p); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	s := &model.Subscription{
		ID:                id,
		PlanID:            p.ID,
		Owner:             "subscriber-1",
		PayerTokenAccount: "acct-payer",
		NextTermDate:      due.UTC().Truncate(time.Microsecond),
		State:             model.SubscriptionStateActive,
		CreatedAt:         time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := NewSubscriptionRepo(testPool).Create(ctx, nil, s); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return s
}

func TestSubscriptionRepo_RoundTrip(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	s := seedSubscription(t, "sub:1", time.Now().Add(time.Hour))

	got, err := repo.FindByID(ctx, nil, s.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.State != model.SubscriptionStateActive || !got.NextTermDate.Equal(s.NextTermDate) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.State = model.SubscriptionStatePastDue
	got.NextTermDate = got.NextTermDate.Add(time.Hour)
	if err := repo.Save(ctx, nil, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, _ := repo.FindByID(ctx, nil, s.ID)
	if again.State != model.SubscriptionStatePastDue || !again.NextTermDate.Equal(got.NextTermDate) {
		t.Fatalf("save not persisted: %+v", again)
	}

	if err := repo.Create(ctx, nil, s); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate create: %v", err)
	}
}

func TestSubscriptionRepo_Delete(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	s := seedSubscription(t, "sub:1", time.Now().Add(time.Hour))
	if err := repo.Delete(ctx, nil, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, nil, s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted subscription still readable: %v", err)
	}
	if err := repo.Delete(ctx, nil, s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestSubscriptionRepo_ListDue(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	now := time.Now()
	overdue := seedSubscription(t, "sub:overdue", now.Add(-2*time.Hour))
	dueNow := seedSubscription(t, "sub:due-now", now.Add(-time.Minute))
	seedSubscription(t, "sub:future", now.Add(time.Hour))

	due, err := repo.ListDue(ctx, nil, now, 10)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("ListDue returned %d, want 2", len(due))
	}
	// most overdue first
	if due[0].ID != overdue.ID || due[1].ID != dueNow.ID {
		t.Fatalf("ListDue order: %s, %s", due[0].ID, due[1].ID)
	}

	limited, err := repo.ListDue(ctx, nil, now, 1)
	if err != nil {
		t.Fatalf("ListDue limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != overdue.ID {
		t.Fatalf("ListDue limit: %+v", limited)
	}
}

func TestSubscriptionRepo_CountByState(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	a := seedSubscription(t, "sub:1", time.Now().Add(time.Hour))
	seedSubscription(t, "sub:2", time.Now().Add(time.Hour))

	a.State = model.SubscriptionStatePastDue
	if err := repo.Save(ctx, nil, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	counts, err := repo.CountByState(ctx, nil)
	if err != nil {
		t.Fatalf("CountByState: %v", err)
	}
	if counts[model.SubscriptionStateActive] != 1 || counts[model.SubscriptionStatePastDue] != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}
