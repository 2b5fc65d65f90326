package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory Lookup useful for tests and early development.
type MemoryRepo struct {
	mu       sync.Mutex
	listings map[string]Listing
	clock    func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{listings: map[string]Listing{}, clock: time.Now}
}

func (r *MemoryRepo) Put(l Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l
}

func (r *MemoryRepo) Find(ctx context.Context, listingID string) (Listing, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	return l, ok, nil
}

func (r *MemoryRepo) RecordCompletedCall(ctx context.Context, listingID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	l.TotalCalls++
	l.UpdatedAt = r.clock().UTC()
	r.listings[listingID] = l
	return nil
}

func (r *MemoryRepo) RecordRating(ctx context.Context, listingID string, rating int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if rating > 0 {
		total := l.AvgRating * float64(l.ReviewCount)
		l.ReviewCount++
		l.AvgRating = (total + float64(rating)) / float64(l.ReviewCount)
	}
	l.UpdatedAt = r.clock().UTC()
	r.listings[listingID] = l
	return nil
}

var _ Lookup = (*MemoryRepo)(nil)
