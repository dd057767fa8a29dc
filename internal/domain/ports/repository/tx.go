package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function within one database transaction,
// passing the underlying transaction handle via `tx`.
//
// Every engine operation runs inside exactly one such transaction: entity
// reads, state mutations, and ledger transfers all commit together or not at
// all. Repositories and the ledger accept the same `tx` handle so their
// effects share the atomicity unit; they MUST gracefully accept nil (the
// non-transactional read path).
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
