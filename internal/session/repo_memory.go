package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	clock    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, clock: time.Now}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Version = 1
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) GetByRoomHandle(ctx context.Context, roomHandle string) (Session, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RoomHandle == roomHandle {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

func (m *MemoryStore) Update(ctx context.Context, s Session) (Session, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if cur.Version != s.Version {
		return Session{}, ErrVersionConflict
	}
	s.Version++
	s.UpdatedAt = m.clock().UTC()
	m.sessions[s.ID] = s
	return s, nil
}

func (m *MemoryStore) ListByParticipant(ctx context.Context, accountID string, asProvider bool, status Status, limit, offset int) ([]Session, int, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]Session, 0)
	for _, s := range m.sessions {
		if asProvider && s.ProviderID != accountID {
			continue
		}
		if !asProvider && s.MemberID != accountID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []Session{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

var _ Store = (*MemoryStore)(nil)
