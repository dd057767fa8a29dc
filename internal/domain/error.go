package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnauthorized         = errors.New("caller is not the owner")
	ErrInvalidState         = errors.New("transition not allowed from current state")
	ErrSubscriptionNotReady = errors.New("subscription is not ready to be charged")

	// Ledger errors. Any of these surfacing inside an operation aborts the
	// whole transaction; no partial funds movement persists.
	ErrInsufficientFunds  = errors.New("insufficient account balance")
	ErrDelegationExceeded = errors.New("transfer exceeds remaining delegated amount")
	ErrNotAuthorized      = errors.New("authority may not move funds from this account")
	ErrMintMismatch       = errors.New("account mint does not match plan settlement asset")
	ErrInvalidExecContext = errors.New("invalid executor context; expected pgx.Tx, *pgxpool.Conn, or *pgxpool.Pool")

	// ErrLockHeld is returned when another crank instance holds the run lock.
	ErrLockHeld = errors.New("lock is held by another process")
)
