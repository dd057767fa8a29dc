package adapter

import (
	"context"

	"subscription-billing/internal/domain/authority"
	"subscription-billing/internal/domain/ports/repository"
)

// TokenAccount is the ledger's view of a balance-holding account.
type TokenAccount struct {
	ID             string
	Mint           string
	OwnerAuthority string
	Balance        int64
	// Standing delegation: Delegate may move up to DelegatedAmount out of the
	// account; each delegated transfer draws the remainder down.
	Delegate        string
	DelegatedAmount int64
}

// TokenLedger is the external ledger/token service the engine instructs to
// move funds. The engine never touches balances except through these calls,
// each authorized by an authority it alone can reproduce.
//
// All mutating calls accept the operation's transaction handle so ledger
// effects share the operation's atomicity unit.
type TokenLedger interface {
	// OpenAccount allocates an empty account; fails with
	// domain.ErrAlreadyExists if the ID is taken.
	OpenAccount(ctx context.Context, tx repository.Tx, id, mint string, owner authority.Authority) error
	GetAccount(ctx context.Context, tx repository.Tx, id string) (*TokenAccount, error)
	Balance(ctx context.Context, tx repository.Tx, id string) (int64, error)

	// Transfer moves amount between accounts of the same mint. The authority
	// must be the source account's owner, or its delegate with enough
	// delegated amount remaining.
	Transfer(ctx context.Context, tx repository.Tx, from, to string, auth authority.Authority, amount int64) error

	// Approve grants delegate a capped spend right over the account; only the
	// account owner may grant it. A new approval replaces any previous one.
	Approve(ctx context.Context, tx repository.Tx, account string, delegate authority.Authority, amount int64, owner authority.Authority) error

	// Revoke clears any standing delegation; only the account owner may.
	Revoke(ctx context.Context, tx repository.Tx, account string, owner authority.Authority) error

	// MintTo issues new units to an account. Bootstrap/testing only; the
	// engine's six operations never call it.
	MintTo(ctx context.Context, tx repository.Tx, account string, amount int64) error
}
