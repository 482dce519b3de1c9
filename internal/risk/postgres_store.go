package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed risk store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_profiles table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_profiles (
			user_id    VARCHAR(128) PRIMARY KEY,
			risk_score INT NOT NULL DEFAULT 0,
			status     VARCHAR(10) NOT NULL DEFAULT 'ok',
			flags      JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT chk_risk_score_nonneg CHECK (risk_score >= 0)
		);
	`)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (*Profile, error) {
	prof := &Profile{}
	var status string
	var flags []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, risk_score, status, flags, updated_at
		FROM risk_profiles WHERE user_id = $1
	`, userID).Scan(&prof.UserID, &prof.RiskScore, &status, &flags, &prof.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	prof.Status = Status(status)
	if err := json.Unmarshal(flags, &prof.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	return prof, nil
}

func (p *PostgresStore) Upsert(ctx context.Context, prof *Profile) error {
	flags, err := json.Marshal(prof.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO risk_profiles (user_id, risk_score, status, flags, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			status     = EXCLUDED.status,
			flags      = EXCLUDED.flags,
			updated_at = EXCLUDED.updated_at
	`, prof.UserID, prof.RiskScore, string(prof.Status), flags, prof.UpdatedAt)
	return err
}
