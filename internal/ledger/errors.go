package ledger

import "errors"

// Sentinel errors for the posting engine. Services wrap these with context
// via fmt.Errorf("...: %w", err) and handlers map them to HTTP status codes
// with errors.Is.
var (
	// ErrValidation: malformed or missing input, caught before any
	// transaction opens.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized: no session or insufficient permission.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound: account, membership, batch-to-reuse, or GL account absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: account not active, already closed, or batch no
	// longer PENDING.
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientFunds: withdrawal or payout exceeds available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConfiguration: missing sequence row, scheme config, or GL mapping.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnbalancedEntry: a CASH posting's legs do not sum debit == credit.
	// This indicates a bug in the calling workflow, not a recoverable
	// runtime state.
	ErrUnbalancedEntry = errors.New("unbalanced ledger entry")
)
