package ledger

import "context"

// Store persists ledger entries and the cached balance projection.
//
// Append must be atomic per account: the guard check, the entry insert, and the
// balance update happen as one linearized operation so two concurrent debits
// against the same account can never both pass a check only one should.
type Store interface {
	// Append writes e and applies its delta to the account balance.
	// When guarded, it fails with ErrInsufficientFunds if the resulting
	// balance would drop below zero, leaving no partial effect.
	Append(ctx context.Context, e Entry, guarded bool) (Balance, error)

	// Balance returns the cached balance; accounts with no entries read as zero.
	Balance(ctx context.Context, accountID string) (Balance, error)

	// ListByAccount returns the account's entries, newest first.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Entry, error)

	// ListBySession returns every entry referencing a call session, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]Entry, error)
}
