package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/authority"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ adapter.TokenLedger = (*TokenLedger)(nil)

// TokenLedger is the reference implementation of the external ledger/token
// service, kept in the same database so a transfer instructed mid-operation
// commits or aborts with the operation's transaction.
//
// Authorization model: a transfer is allowed when the presented authority is
// the source account's recorded owner, or its recorded delegate with enough
// delegated allowance left. Every transfer draws a delegate's allowance down,
// so the enrollment-time cap bounds total drain.
type TokenLedger struct {
	pool    *pgxpool.Pool
	entropy *ulid.MonotonicEntropy
}

func NewTokenLedger(pool *pgxpool.Pool) *TokenLedger {
	return &TokenLedger{
		pool:    pool,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

const acctColumns = `id, mint, owner_authority, balance, COALESCE(delegate_authority, ''), delegated_amount`

func (l *TokenLedger) OpenAccount(ctx context.Context, tx repository.Tx, id, mint string, owner authority.Authority) error {
	const q = `
INSERT INTO token_accounts (id, mint, owner_authority, balance, delegated_amount)
VALUES ($1, $2, $3, 0, 0);`
	ex, err := getExecutor(l.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, id, mint, owner.ID()); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("open account: %w", err)
	}
	return nil
}

func (l *TokenLedger) GetAccount(ctx context.Context, tx repository.Tx, id string) (*adapter.TokenAccount, error) {
	const q = `SELECT ` + acctColumns + ` FROM token_accounts WHERE id = $1;`
	ex, err := getExecutor(l.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanAccount(ex.QueryRow(ctx, q, id))
}

func (l *TokenLedger) Balance(ctx context.Context, tx repository.Tx, id string) (int64, error) {
	a, err := l.GetAccount(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Transfer moves amount between same-mint accounts. Both rows are locked in
// ID order so two concurrent transfers over the same pair cannot deadlock,
// and an append-only journal entry records the movement.
func (l *TokenLedger) Transfer(ctx context.Context, tx repository.Tx, from, to string, auth authority.Authority, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	ex, err := getExecutor(l.pool, tx)
	if err != nil {
		return err
	}

	first, second := from, to
	if second < first {
		first, second = second, first
	}
	src, err := l.lockAccount(ctx, ex, first)
	if err != nil {
		return err
	}
	dst, err := l.lockAccount(ctx, ex, second)
	if err != nil {
		return err
	}
	if from != first {
		src, dst = dst, src
	}

	if src.Mint != dst.Mint {
		return domain.ErrMintMismatch
	}
	usedDelegation := false
	switch auth.ID() {
	case src.OwnerAuthority:
	case src.Delegate:
		if amount > src.DelegatedAmount {
			return domain.ErrDelegationExceeded
		}
		usedDelegation = true
	default:
		return domain.ErrNotAuthorized
	}
	if src.Balance < amount {
		return domain.ErrInsufficientFunds
	}

	if usedDelegation {
		const q = `
UPDATE token_accounts
   SET balance = balance - $2, delegated_amount = delegated_amount - $2
 WHERE id = $1;`
		if _, err := ex.Exec(ctx, q, from, amount); err != nil {
			return fmt.Errorf("debit delegated: %w", err)
		}
	} else {
		const q = `UPDATE token_accounts SET balance = balance - $2 WHERE id = $1;`
		if _, err := ex.Exec(ctx, q, from, amount); err != nil {
			return fmt.Errorf("debit: %w", err)
		}
	}
	const credit = `UPDATE token_accounts SET balance = balance + $2 WHERE id = $1;`
	if _, err := ex.Exec(ctx, credit, to, amount); err != nil {
		return fmt.Errorf("credit: %w", err)
	}

	const journal = `
INSERT INTO ledger_entries (id, from_account, to_account, authority, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	entryID := ulid.MustNew(ulid.Timestamp(time.Now()), l.entropy).String()
	if _, err := ex.Exec(ctx, journal, entryID, from, to, auth.ID(), amount, time.Now()); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

func (l *TokenLedger) Approve(ctx context.Context, tx repository.Tx, account string, delegate authority.Authority, amount int64, owner authority.Authority) error {
	if amount < 0 {
		return domain.ErrInvalidArgument
	}
	ex, err := getExecutor(l.pool, tx)
	if err != nil {
		return err
	}
	a, err := l.lockAccount(ctx, ex, account)
	if err != nil {
		return err
	}
	if a.OwnerAuthority != owner.ID() {
		return domain.ErrNotAuthorized
	}
	const q = `UPDATE token_accounts SET delegate_authority = $2, delegated_amount = $3 WHERE id = $1;`
	if _, err := ex.Exec(ctx, q, account, delegate.ID(), amount); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

func (l *TokenLedger) Revoke(ctx context.Context, tx repository.Tx, account string, owner authority.Authority) error {
	ex, err := getExecutor(l.pool, tx)
	if err != nil {
		return err
	}
	a, err := l.lockAccount(ctx, ex, account)
	if err != nil {
		return err
	}
	if a.OwnerAuthority != owner.ID() {
		return domain.ErrNotAuthorized
	}
	const q = `UPDATE token_accounts SET delegate_authority = NULL, delegated_amount = 0 WHERE id = $1;`
	if _, err := ex.Exec(ctx, q, account); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

// MintTo issues new units. Bootstrap and tests only.
func (l *TokenLedger) MintTo(ctx context.Context, tx repository.Tx, account string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidArgument
	}
	ex, err := getExecutor(l.pool, tx)
	if err != nil {
		return err
	}
	const q = `UPDATE token_accounts SET balance = balance + $2 WHERE id = $1;`
	ct, err := ex.Exec(ctx, q, account, amount)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (l *TokenLedger) lockAccount(ctx context.Context, ex executor, id string) (*adapter.TokenAccount, error) {
	const q = `SELECT ` + acctColumns + ` FROM token_accounts WHERE id = $1 FOR UPDATE;`
	return scanAccount(ex.QueryRow(ctx, q, id))
}

func scanAccount(row pgx.Row) (*adapter.TokenAccount, error) {
	var a adapter.TokenAccount
	if err := row.Scan(&a.ID, &a.Mint, &a.OwnerAuthority, &a.Balance, &a.Delegate, &a.DelegatedAmount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("account: %w", err)
	}
	return &a, nil
}
