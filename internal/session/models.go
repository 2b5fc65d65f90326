package session

import "time"

// Session is one reserved, time-boxed consultation between a member and a
// provider.
//
// Money invariant: CoinsReserved always equals the sum of call_reserve and
// call_extend ledger entries for this session minus its call_refund entries.
// The manager is the only writer of this record and the only caller of ledger
// settlement operations.
//
// Provider and rate are snapshotted from the listing at creation so listing
// edits never change the terms of an in-flight call.
type Session struct {
	ID string `json:"id" db:"id"`

	MemberID   string `json:"member_id" db:"member_id"`
	ProviderID string `json:"provider_id" db:"provider_id"`
	ListingID  string `json:"listing_id" db:"listing_id"`

	// HourlyRate is the coins-per-hour rate at creation time, used for
	// extension pricing.
	HourlyRate int64 `json:"hourly_rate" db:"hourly_rate"`

	Status Status `json:"status" db:"status"`

	// ScheduledMinutes only grows, via extensions.
	ScheduledMinutes int `json:"scheduled_minutes" db:"scheduled_minutes"`
	// ActualMinutes is set once, at completion.
	ActualMinutes int `json:"actual_minutes" db:"actual_minutes"`

	// CoinsReserved is monotonically non-decreasing until the session ends.
	CoinsReserved int64 `json:"coins_reserved" db:"coins_reserved"`

	// RoomHandle is the opaque identifier from the video room gateway.
	RoomHandle string `json:"room_handle" db:"room_handle"`

	StartTime *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	// Rating (1-5) and Feedback are settable only once the session completed.
	Rating   int    `json:"rating,omitempty" db:"rating"`
	Feedback string `json:"feedback,omitempty" db:"feedback"`

	// Version supports optimistic concurrency in stores.
	Version int64 `json:"-" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsParticipant reports whether an account takes part in the session.
func (s Session) IsParticipant(accountID string) bool {
	return accountID == s.MemberID || accountID == s.ProviderID
}
