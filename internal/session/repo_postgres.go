package session

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists call sessions in Postgres.
//
// NOTE: This store assumes a call_sessions table with a version column.
// Optimistic concurrency: every UPDATE carries WHERE version = $n; a zero-row
// update means a concurrent transition won and the caller must re-read.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `
id, member_id, provider_id, listing_id, hourly_rate, status,
scheduled_minutes, actual_minutes, coins_reserved, room_handle,
start_time, end_time, rating, feedback, version, created_at, updated_at
`

func (p *PostgresStore) Create(ctx context.Context, s Session) error {
	const q = `
INSERT INTO call_sessions (
  id, member_id, provider_id, listing_id, hourly_rate, status,
  scheduled_minutes, actual_minutes, coins_reserved, room_handle,
  start_time, end_time, rating, feedback, version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,1,$15,$16)
`
	_, err := p.db.ExecContext(ctx, q,
		s.ID, s.MemberID, s.ProviderID, s.ListingID, s.HourlyRate, s.Status,
		s.ScheduledMinutes, s.ActualMinutes, s.CoinsReserved, s.RoomHandle,
		s.StartTime, s.EndTime, s.Rating, s.Feedback, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	const q = `SELECT` + sessionColumns + `FROM call_sessions WHERE id = $1`
	return p.scanOne(p.db.QueryRowContext(ctx, q, id))
}

func (p *PostgresStore) GetByRoomHandle(ctx context.Context, roomHandle string) (Session, error) {
	const q = `SELECT` + sessionColumns + `FROM call_sessions WHERE room_handle = $1 LIMIT 1`
	return p.scanOne(p.db.QueryRowContext(ctx, q, roomHandle))
}

func (p *PostgresStore) Update(ctx context.Context, s Session) (Session, error) {
	const q = `
UPDATE call_sessions SET
  status = $1, scheduled_minutes = $2, actual_minutes = $3, coins_reserved = $4,
  start_time = $5, end_time = $6, rating = $7, feedback = $8,
  version = version + 1, updated_at = now()
WHERE id = $9 AND version = $10
RETURNING` + sessionColumns + `
`
	out, err := p.scanOne(p.db.QueryRowContext(ctx, q,
		s.Status, s.ScheduledMinutes, s.ActualMinutes, s.CoinsReserved,
		s.StartTime, s.EndTime, s.Rating, s.Feedback,
		s.ID, s.Version,
	))
	if errors.Is(err, ErrNotFound) {
		// Either the row is gone (never happens: sessions are not deleted)
		// or the version moved underneath us.
		return Session{}, ErrVersionConflict
	}
	return out, err
}

func (p *PostgresStore) ListByParticipant(ctx context.Context, accountID string, asProvider bool, status Status, limit, offset int) ([]Session, int, error) {
	column := "member_id"
	if asProvider {
		column = "provider_id"
	}

	countQ := `SELECT COUNT(*) FROM call_sessions WHERE ` + column + ` = $1 AND ($2 = '' OR status = $2)`
	var total int
	if err := p.db.QueryRowContext(ctx, countQ, accountID, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQ := `SELECT` + sessionColumns + `
FROM call_sessions
WHERE ` + column + ` = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`
	rows, err := p.db.QueryContext(ctx, listQ, accountID, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanOne(row rowScanner) (Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.MemberID, &s.ProviderID, &s.ListingID, &s.HourlyRate, &s.Status,
		&s.ScheduledMinutes, &s.ActualMinutes, &s.CoinsReserved, &s.RoomHandle,
		&s.StartTime, &s.EndTime, &s.Rating, &s.Feedback, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

var _ Store = (*PostgresStore)(nil)
