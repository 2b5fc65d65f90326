package catalog

import (
	"context"
	"errors"
)

// Lookup abstracts listing persistence for the call core.
//
// Implementations can be Postgres, cached, etc. The call core only reads
// through Find and writes through RecordCompletedCall.
type Lookup interface {
	// Find returns the listing, reporting found=false for unknown ids.
	Find(ctx context.Context, listingID string) (Listing, bool, error)

	// RecordCompletedCall bumps the listing's call counter.
	// Best-effort caller semantics: failures must not block call settlement.
	RecordCompletedCall(ctx context.Context, listingID string) error

	// RecordRating folds one rating into the listing's running average.
	RecordRating(ctx context.Context, listingID string, rating int) error
}

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidListing  = errors.New("invalid listing")
)

// FindActive resolves a listing and enforces that it is bookable.
// Inactive and missing listings are indistinguishable to callers by design.
func FindActive(ctx context.Context, repo Lookup, listingID string) (Listing, error) {
	if listingID == "" {
		return Listing{}, ErrListingNotFound
	}
	l, ok, err := repo.Find(ctx, listingID)
	if err != nil {
		return Listing{}, err
	}
	if !ok || !l.Active {
		return Listing{}, ErrListingNotFound
	}
	if l.HourlyRate <= 0 || l.ProviderID == "" {
		return Listing{}, ErrInvalidListing
	}
	return l, nil
}

// RequiredCoins computes the upfront price for a duration at an hourly rate,
// rounding up: ceil(rate * minutes / 60).
func RequiredCoins(hourlyRate int64, minutes int) int64 {
	if hourlyRate <= 0 || minutes <= 0 {
		return 0
	}
	total := hourlyRate * int64(minutes)
	coins := total / 60
	if total%60 != 0 {
		coins++
	}
	return coins
}
