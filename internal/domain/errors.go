package domain

import "errors"

var (
	// ErrDuplicateClaim means an idempotency guard rejected a key that was
	// already claimed. Not a failure: the event was processed before.
	ErrDuplicateClaim = errors.New("idempotency key already claimed")

	ErrAccountNotFound = errors.New("account not found")
	ErrEntryNotFound   = errors.New("ledger entry not found")

	// ErrInvalidTransition means an entry status mutation was attempted
	// that the state machine does not permit.
	ErrInvalidTransition = errors.New("invalid ledger entry status transition")

	// ErrStaleSnapshot means a balance snapshot write lost the version
	// race against a concurrent mutation. The caller re-reads and
	// retries.
	ErrStaleSnapshot = errors.New("balance snapshot version changed")
)
