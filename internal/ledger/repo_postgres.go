package ledger

import (
	"context"
	"database/sql"
	"errors"

	"consult-platform/pkg/utils"
)

// PostgresStore persists the ledger in Postgres.
//
// NOTE: This store assumes the following tables exist:
// - coin_ledger (immutable append-only)
// - coin_balances (projection, one row per account)
//
// The debit guard uses SELECT ... FOR UPDATE on the projection row so that
// concurrent debits against one account serialize at the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Append(ctx context.Context, e Entry, guarded bool) (Balance, error) {
	var out Balance
	err := utils.WithTx(ctx, p.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if guarded {
			bal, err := balanceForUpdate(ctx, tx, e.AccountID)
			if err != nil {
				return err
			}
			if bal.Coins+e.Coins < 0 {
				return ErrInsufficientFunds
			}
		}
		if err := insertEntry(ctx, tx, e); err != nil {
			return err
		}
		bal, err := applyBalanceDelta(ctx, tx, e)
		if err != nil {
			return err
		}
		out = bal
		return nil
	})
	return out, err
}

func (p *PostgresStore) Balance(ctx context.Context, accountID string) (Balance, error) {
	const q = `
SELECT account_id, coins, updated_at
FROM coin_balances
WHERE account_id = $1
`
	var b Balance
	if err := p.db.QueryRowContext(ctx, q, accountID).Scan(&b.AccountID, &b.Coins, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No entries yet; the account reads as zero.
			return Balance{AccountID: accountID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func (p *PostgresStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Entry, error) {
	const q = `
SELECT id, account_id, kind, coins, session_id, status, created_at
FROM coin_ledger
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`
	rows, err := p.db.QueryContext(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (p *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	const q = `
SELECT id, account_id, kind, coins, session_id, status, created_at
FROM coin_ledger
WHERE session_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := p.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func balanceForUpdate(ctx context.Context, tx *sql.Tx, accountID string) (Balance, error) {
	const q = `
SELECT account_id, coins, updated_at
FROM coin_balances
WHERE account_id = $1
FOR UPDATE
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, accountID).Scan(&b.AccountID, &b.Coins, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{AccountID: accountID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO coin_ledger (id, account_id, kind, coins, session_id, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := tx.ExecContext(ctx, q, e.ID, e.AccountID, e.Kind, e.Coins, e.SessionID, e.Status, e.CreatedAt)
	return err
}

func applyBalanceDelta(ctx context.Context, tx *sql.Tx, e Entry) (Balance, error) {
	const q = `
INSERT INTO coin_balances (account_id, coins, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (account_id)
DO UPDATE SET coins = coin_balances.coins + EXCLUDED.coins,
              updated_at = EXCLUDED.updated_at
RETURNING account_id, coins, updated_at
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, e.AccountID, e.Coins, e.CreatedAt).Scan(&b.AccountID, &b.Coins, &b.UpdatedAt); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Coins, &e.SessionID, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
