package video

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider is an in-memory RoomProvider fake for tests.
// Failure injection covers the compensation paths in the call core.
type MemoryProvider struct {
	mu    sync.Mutex
	rooms map[string]Room
	seq   int

	// FailCreate makes CreateRoom return ErrRoomCreationFailed.
	FailCreate bool
	// FailClose makes CloseRoom return an error (callers must treat close as
	// best-effort, so this should never fail a test of the happy path).
	FailClose bool

	Closed []string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{rooms: map[string]Room{}}
}

func (m *MemoryProvider) Name() string { return "memory" }

func (m *MemoryProvider) CreateRoom(ctx context.Context, sessionID string) (Room, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate {
		return Room{}, ErrRoomCreationFailed
	}
	m.seq++
	r := Room{
		Handle: fmt.Sprintf("RM%04d", m.seq),
		Name:   "call-" + sessionID,
	}
	m.rooms[r.Handle] = r
	return r, nil
}

func (m *MemoryProvider) IssueAccessToken(ctx context.Context, room Room, participantID string, role ParticipantRole) (string, error) {
	_ = ctx
	return fmt.Sprintf("token-%s-%s-%s", room.Handle, participantID, role), nil
}

func (m *MemoryProvider) CloseRoom(ctx context.Context, handle string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailClose {
		return fmt.Errorf("video: simulated close failure")
	}
	delete(m.rooms, handle)
	m.Closed = append(m.Closed, handle)
	return nil
}

// OpenRooms reports how many rooms are still provisioned.
func (m *MemoryProvider) OpenRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

var _ RoomProvider = (*MemoryProvider)(nil)
