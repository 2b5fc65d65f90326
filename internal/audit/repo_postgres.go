package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events. INSERT-only; the table should enforce
// immutability with a deny policy on UPDATE/DELETE.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, actor_role, ip_address,
  account_id, session_id, listing_id, coins, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Type, e.ActorUserID, e.ActorRole, e.IPAddress,
		e.AccountID, e.SessionID, e.ListingID, e.Coins, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}

var _ Repository = (*PostgresRepo)(nil)
