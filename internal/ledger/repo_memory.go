package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and early development.
// A single mutex linearizes all appends, which satisfies the per-account
// atomicity contract trivially.
type MemoryStore struct {
	mu       sync.Mutex
	entries  []Entry
	balances map[string]Balance
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: map[string]Balance{}}
}

func (m *MemoryStore) Append(ctx context.Context, e Entry, guarded bool) (Balance, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[e.AccountID]
	next := bal.Coins + e.Coins
	if guarded && next < 0 {
		return Balance{}, ErrInsufficientFunds
	}

	m.entries = append(m.entries, e)
	updated := Balance{AccountID: e.AccountID, Coins: next, UpdatedAt: e.CreatedAt}
	m.balances[e.AccountID] = updated
	return updated, nil
}

func (m *MemoryStore) Balance(ctx context.Context, accountID string) (Balance, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if bal, ok := m.balances[accountID]; ok {
		return bal, nil
	}
	return Balance{AccountID: accountID}, nil
}

func (m *MemoryStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Entry, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	newest := make([]Entry, 0)
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountID == accountID {
			newest = append(newest, m.entries[i])
		}
	}
	if offset >= len(newest) {
		return []Entry{}, nil
	}
	end := offset + limit
	if end > len(newest) {
		end = len(newest)
	}
	return newest[offset:end], nil
}

func (m *MemoryStore) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0)
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// SumDeltas recomputes an account balance from raw entries.
// Test helper for the balance == sum(entries) invariant.
func (m *MemoryStore) SumDeltas(accountID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum += e.Coins
		}
	}
	return sum
}

var _ Store = (*MemoryStore)(nil)
