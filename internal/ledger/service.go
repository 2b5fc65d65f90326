package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service provides coin ledger operations.
//
// Money invariants:
// - No balance updates without a ledger entry
// - Ledger is append-only (immutable)
// - Debit guards and balance updates are atomic per account (see Store)
//
// The call session manager is the only caller of the call_* operations; it owns
// the decision of when to reserve, refund, and settle.
type Service struct {
	store Store
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Reserve debits the member's upfront coins for a call session.
// Fails with ErrInsufficientFunds when the balance cannot cover amount.
func (s *Service) Reserve(ctx context.Context, accountID string, amount int64, sessionID string) (Entry, Balance, error) {
	return s.debit(ctx, accountID, amount, sessionID, EntryKindCallReserve)
}

// Extend debits additional coins mid-call. Same guard semantics as Reserve;
// a separate entry kind keeps extensions auditable.
func (s *Service) Extend(ctx context.Context, accountID string, amount int64, sessionID string) (Entry, Balance, error) {
	return s.debit(ctx, accountID, amount, sessionID, EntryKindCallExtend)
}

// Refund returns reserved coins to the member. Refunds never check balance.
func (s *Service) Refund(ctx context.Context, accountID string, amount int64, sessionID string) (Entry, Balance, error) {
	return s.credit(ctx, accountID, amount, sessionID, EntryKindCallRefund)
}

// Settle credits the provider's earnings for a completed session.
func (s *Service) Settle(ctx context.Context, accountID string, amount int64, sessionID string) (Entry, Balance, error) {
	return s.credit(ctx, accountID, amount, sessionID, EntryKindCallEarnings)
}

// Purchase credits coins bought through a coin package. Payment capture happens
// upstream; by the time this is called the purchase is final.
func (s *Service) Purchase(ctx context.Context, accountID string, amount int64) (Entry, Balance, error) {
	return s.credit(ctx, accountID, amount, "", EntryKindPurchase)
}

func (s *Service) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	if accountID == "" {
		return Balance{}, ErrInvalidArgument
	}
	return s.store.Balance(ctx, accountID)
}

// AccountHistory returns the account's entries, newest first.
func (s *Service) AccountHistory(ctx context.Context, accountID string, limit, offset int) ([]Entry, error) {
	if accountID == "" || limit <= 0 || offset < 0 {
		return nil, ErrInvalidArgument
	}
	return s.store.ListByAccount(ctx, accountID, limit, offset)
}

// SessionEntries returns every entry written for one call session, oldest first.
func (s *Service) SessionEntries(ctx context.Context, sessionID string) ([]Entry, error) {
	if sessionID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListBySession(ctx, sessionID)
}

func (s *Service) debit(ctx context.Context, accountID string, amount int64, sessionID string, kind EntryKind) (Entry, Balance, error) {
	if accountID == "" || sessionID == "" || amount <= 0 {
		return Entry{}, Balance{}, ErrInvalidArgument
	}
	e := s.newEntry(accountID, kind, -amount, sessionID)
	bal, err := s.store.Append(ctx, e, true)
	if err != nil {
		return Entry{}, Balance{}, err
	}
	return e, bal, nil
}

func (s *Service) credit(ctx context.Context, accountID string, amount int64, sessionID string, kind EntryKind) (Entry, Balance, error) {
	if accountID == "" || amount <= 0 {
		return Entry{}, Balance{}, ErrInvalidArgument
	}
	if kind != EntryKindPurchase && sessionID == "" {
		return Entry{}, Balance{}, ErrInvalidArgument
	}
	e := s.newEntry(accountID, kind, amount, sessionID)
	bal, err := s.store.Append(ctx, e, false)
	if err != nil {
		return Entry{}, Balance{}, err
	}
	return e, bal, nil
}

func (s *Service) newEntry(accountID string, kind EntryKind, coins int64, sessionID string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Coins:     coins,
		SessionID: sessionID,
		Status:    EntryStatusCompleted,
		CreatedAt: s.clock().UTC(),
	}
}
