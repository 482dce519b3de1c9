package wallet

import (
	"context"
	"database/sql"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed wallet store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the wallet_transactions table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_transactions (
			id         VARCHAR(36) PRIMARY KEY,
			user_id    VARCHAR(128) NOT NULL,
			amount     BIGINT NOT NULL,
			currency   VARCHAR(16) NOT NULL DEFAULT 'points',
			type       VARCHAR(16) NOT NULL,
			source     VARCHAR(128) NOT NULL,
			related_id VARCHAR(128),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_wallet_tx_user ON wallet_transactions(user_id, created_at DESC);
	`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, tx *Transaction) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, amount, currency, type, source, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`, tx.ID, tx.UserID, tx.Amount, tx.Currency, string(tx.Type), tx.Source, tx.RelatedID, tx.CreatedAt)
	return err
}

func (p *PostgresStore) Sum(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE user_id = $1
	`, userID).Scan(&sum)
	return sum, err
}

func (p *PostgresStore) List(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, amount, currency, type, source, COALESCE(related_id, ''), created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Transaction
	for rows.Next() {
		tx := &Transaction{}
		var typ string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Currency, &typ, &tx.Source, &tx.RelatedID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Type = Type(typ)
		out = append(out, tx)
	}
	return out, rows.Err()
}
