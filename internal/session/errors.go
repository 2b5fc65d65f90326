package session

import "errors"

// Expected, caller-recoverable failures. Insufficient funds and room creation
// failures propagate from the ledger and video packages respectively.
var (
	ErrNotFound        = errors.New("session not found")
	ErrListingNotFound = errors.New("listing not found or inactive")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrInvalidState    = errors.New("invalid session state")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")

	// ErrVersionConflict is returned by stores when an update lost an
	// optimistic concurrency race. The manager's per-session locking makes
	// this unreachable in-process; it guards multi-process deployments.
	ErrVersionConflict = errors.New("session version conflict")
)
