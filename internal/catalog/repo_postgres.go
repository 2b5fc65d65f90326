package catalog

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo reads and updates listings in Postgres.
//
// Stat updates run as single UPDATE statements; every SET expression sees the
// old row, so the running-average fold needs no explicit transaction.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Find(ctx context.Context, listingID string) (Listing, bool, error) {
	const q = `
SELECT id, provider_id, title, description, hourly_rate, active,
       total_calls, avg_rating, review_count, created_at, updated_at
FROM listings WHERE id = $1`

	var l Listing
	err := r.db.QueryRowContext(ctx, q, listingID).Scan(
		&l.ID, &l.ProviderID, &l.Title, &l.Description, &l.HourlyRate, &l.Active,
		&l.TotalCalls, &l.AvgRating, &l.ReviewCount, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Listing{}, false, nil
	}
	if err != nil {
		return Listing{}, false, err
	}
	return l, true, nil
}

func (r *PostgresRepo) RecordCompletedCall(ctx context.Context, listingID string) error {
	const q = `UPDATE listings SET total_calls = total_calls + 1, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, listingID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) RecordRating(ctx context.Context, listingID string, rating int) error {
	if rating <= 0 {
		return nil
	}
	const q = `
UPDATE listings SET
  avg_rating = ((avg_rating * review_count) + $2) / (review_count + 1),
  review_count = review_count + 1,
  updated_at = now()
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, listingID, rating)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrListingNotFound
	}
	return nil
}

var _ Lookup = (*PostgresRepo)(nil)
