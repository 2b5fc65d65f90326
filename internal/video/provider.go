package video

import (
	"context"
	"errors"
)

// RoomProvider is the provider-agnostic room gateway used by the call core.
//
// Rules:
// - No provider SDK calls outside video adapters.
// - Room handles are opaque to business logic; store them, never parse them.
// - CreateRoom must be bounded by a timeout; a provider that hangs is a
//   creation failure, not a stuck call.
type RoomProvider interface {
	Name() string

	// CreateRoom provisions a room for one call session.
	CreateRoom(ctx context.Context, sessionID string) (Room, error)

	// IssueAccessToken returns a join credential for one participant.
	IssueAccessToken(ctx context.Context, room Room, participantID string, role ParticipantRole) (string, error)

	// CloseRoom tears the room down. Best-effort: callers log failures and
	// continue, the call is logically finished regardless.
	CloseRoom(ctx context.Context, handle string) error
}

// Room identifies a provisioned room at the provider.
type Room struct {
	// Handle is the provider's unique identifier (e.g. a Twilio Room SID).
	Handle string `json:"handle"`
	// Name is the human-readable unique name the room was created under.
	Name string `json:"name"`
}

type ParticipantRole string

const (
	ParticipantRoleMember   ParticipantRole = "member"
	ParticipantRoleProvider ParticipantRole = "provider"
)

// ErrRoomCreationFailed covers any failure to provision a room, including
// provider timeouts. The call core compensates the coin reservation on it.
var ErrRoomCreationFailed = errors.New("room creation failed")
