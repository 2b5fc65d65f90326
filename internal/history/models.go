package history

import "consult-platform/internal/session"

// ListRequest selects one participant's call history.
// Status is optional; empty means every state.
type ListRequest struct {
	AccountID  string         `json:"account_id"`
	AsProvider bool           `json:"as_provider"`
	Status     session.Status `json:"status,omitempty"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// Page is one page of call history, newest first.
type Page struct {
	Items      []session.Session `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// CallsSummary aggregates one participant's completed activity.
//
// Coin totals follow settlement: a completed session's full reservation is
// spend for the member and earnings for the provider; everything else nets
// to zero through refunds.
type CallsSummary struct {
	AccountID  string `json:"account_id"`
	AsProvider bool   `json:"as_provider"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	RejectedCalls  int `json:"rejected_calls"`
	CancelledCalls int `json:"cancelled_calls"`
	OpenCalls      int `json:"open_calls"`

	TotalMinutes   int `json:"total_minutes"`
	AverageMinutes int `json:"average_minutes"`

	RatedCalls    int     `json:"rated_calls"`
	AverageRating float64 `json:"average_rating"`

	CoinsSpent  int64 `json:"coins_spent,omitempty"`
	CoinsEarned int64 `json:"coins_earned,omitempty"`
}
