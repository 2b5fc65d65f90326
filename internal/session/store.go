package session

import "context"

// Store persists call sessions. Sessions are never deleted; terminal states
// are retained for history.
type Store interface {
	Create(ctx context.Context, s Session) error

	Get(ctx context.Context, id string) (Session, error)

	// GetByRoomHandle resolves the session a provider room belongs to.
	GetByRoomHandle(ctx context.Context, roomHandle string) (Session, error)

	// Update writes s if the stored version still matches s.Version, then
	// bumps the version. Fails with ErrVersionConflict otherwise.
	Update(ctx context.Context, s Session) (Session, error)

	// ListByParticipant returns sessions where the account took part in the
	// given side, newest first. Empty status means all statuses.
	// total is the unpaginated match count.
	ListByParticipant(ctx context.Context, accountID string, asProvider bool, status Status, limit, offset int) (items []Session, total int, err error)
}
