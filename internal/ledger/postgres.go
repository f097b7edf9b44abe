package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store using PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const entryColumns = `id, user_id, entry_type, amount, resulting_balance,
description, ref_type, ref_id, created_at`

// Append records an entry and assigns the database-generated ID.
func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	row := s.pool.QueryRow(ctx, `
INSERT INTO credit_ledger_entries
  (user_id, entry_type, amount, resulting_balance, description, ref_type, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
RETURNING id, created_at;
`,
		e.UserID, string(e.Type), e.Amount, e.ResultingBalance, e.Description,
		e.RefType, e.RefID,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ByReference returns all entries for a reference, oldest first.
func (s *PostgresStore) ByReference(ctx context.Context, refType string, refID int64) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+entryColumns+`
FROM credit_ledger_entries
WHERE ref_type = $1 AND ref_id = $2
ORDER BY id ASC;
`, refType, refID)
	if err != nil {
		return nil, fmt.Errorf("ledger by reference: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// ByUser returns all entries for a user, newest first.
func (s *PostgresStore) ByUser(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+entryColumns+`
FROM credit_ledger_entries
WHERE user_id = $1
ORDER BY id DESC;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger by user: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// Balance returns the current credit balance of a user.
func (s *PostgresStore) Balance(ctx context.Context, userID int64) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx, `
SELECT credits FROM users WHERE id = $1;
`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// SetBalance updates the stored balance of a user as a single-row update.
func (s *PostgresStore) SetBalance(ctx context.Context, userID int64, balance int) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (id, credits) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET credits = EXCLUDED.credits;
`, userID, balance)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var entryType string
		if err := rows.Scan(
			&e.ID, &e.UserID, &entryType, &e.Amount, &e.ResultingBalance,
			&e.Description, &e.RefType, &e.RefID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Type = EntryType(entryType)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
