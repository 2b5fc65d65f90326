package ledger

import "time"

// Entry is an immutable append-only coin movement.
//
// Money invariant: an account's balance is the sum of its entry deltas.
// No code may change a balance without writing a corresponding entry, and no
// entry is ever updated or deleted; a refund is a new entry, not a mutation.
type Entry struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	// Kind categorizes the entry. Keep these stable; they are audit contracts.
	Kind EntryKind `json:"kind" db:"kind"`

	// Coins is the signed delta. Credits are positive, debits are negative.
	Coins int64 `json:"coins" db:"coins"`

	// SessionID links call-related entries to their call session.
	// Empty for purchases.
	SessionID string `json:"session_id,omitempty" db:"session_id"`

	// Status is always completed: this ledger has no pending/two-phase entries.
	Status EntryStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryKind string

const (
	EntryKindPurchase     EntryKind = "purchase"      // coin package top-up
	EntryKindCallReserve  EntryKind = "call_reserve"  // upfront debit at session create
	EntryKindCallExtend   EntryKind = "call_extend"   // additional debit mid-call
	EntryKindCallRefund   EntryKind = "call_refund"   // reservation returned to member
	EntryKindCallEarnings EntryKind = "call_earnings" // settlement credit to provider
)

type EntryStatus string

const EntryStatusCompleted EntryStatus = "completed"

// Balance is the cached running total for one account, maintained
// transactionally with entry appends.
type Balance struct {
	AccountID string    `json:"account_id" db:"account_id"`
	Coins     int64     `json:"coins" db:"coins"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
