package catalog

import "time"

// Listing is a provider's published service offering.
//
// The call core treats listings as read-only: rate and provider are snapshotted
// onto the call session at creation, so later edits never affect an in-flight
// call. Only the stats fields are written back, and only on completion.
type Listing struct {
	ID         string `json:"id" db:"id"`
	ProviderID string `json:"provider_id" db:"provider_id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description,omitempty" db:"description"`

	// HourlyRate is the price in coins per 60 minutes. Always positive.
	HourlyRate int64 `json:"hourly_rate" db:"hourly_rate"`

	Active bool `json:"active" db:"active"`

	// Rolling stats, updated when calls against this listing complete.
	TotalCalls  int     `json:"total_calls" db:"total_calls"`
	AvgRating   float64 `json:"avg_rating" db:"avg_rating"`
	ReviewCount int     `json:"review_count" db:"review_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
