package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return NewLocker(cli), mr
}

func TestTryLockMutualExclusion(t *testing.T) {
	t.Parallel()
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.TryLock(ctx, "crank:run", time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	if _, err := locker.TryLock(ctx, "crank:run", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("second TryLock: %v", err)
	}

	if err := locker.Unlock(ctx, "crank:run", token); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := locker.TryLock(ctx, "crank:run", time.Minute); err != nil {
		t.Fatalf("TryLock after unlock: %v", err)
	}
}

func TestUnlockRequiresOwnerToken(t *testing.T) {
	t.Parallel()
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.TryLock(ctx, "crank:run", time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}

	// A stale holder must not be able to release someone else's lock.
	if err := locker.Unlock(ctx, "crank:run", "not-the-token"); err != nil {
		t.Fatalf("Unlock with wrong token: %v", err)
	}
	if !mr.Exists("crank:run") {
		t.Fatal("lock was released by a non-owner")
	}

	if err := locker.Unlock(ctx, "crank:run", token); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if mr.Exists("crank:run") {
		t.Fatal("lock still held after owner unlock")
	}
}

func TestLockExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	if _, err := locker.TryLock(ctx, "crank:run", time.Second); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := locker.TryLock(ctx, "crank:run", time.Second); err != nil {
		t.Fatalf("TryLock after expiry: %v", err)
	}
}
