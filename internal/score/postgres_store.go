package score

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/steadyhq/steady/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed score store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scores and score_history tables
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scores (
			user_id      VARCHAR(128) PRIMARY KEY,
			total_score  INT NOT NULL,
			sub_scores   JSONB NOT NULL,
			drivers      JSONB NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL,
			CONSTRAINT chk_total_range CHECK (total_score BETWEEN 0 AND 1000)
		);

		CREATE TABLE IF NOT EXISTS score_history (
			id          VARCHAR(36) PRIMARY KEY,
			user_id     VARCHAR(128) NOT NULL,
			total_score INT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_score_history_user_ts ON score_history(user_id, timestamp DESC);
	`)
	return err
}

// Save writes the current score and one history point in a single
// transaction so they can never diverge.
func (p *PostgresStore) Save(ctx context.Context, s *Score, h *HistoryPoint) error {
	subScores, err := json.Marshal(s.SubScores)
	if err != nil {
		return fmt.Errorf("marshal sub scores: %w", err)
	}
	drivers, err := json.Marshal(s.Drivers)
	if err != nil {
		return fmt.Errorf("marshal drivers: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scores (user_id, total_score, sub_scores, drivers, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			total_score  = EXCLUDED.total_score,
			sub_scores   = EXCLUDED.sub_scores,
			drivers      = EXCLUDED.drivers,
			last_updated = EXCLUDED.last_updated
	`, s.UserID, s.TotalScore, subScores, drivers, s.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO score_history (id, user_id, total_score, timestamp)
		VALUES ($1, $2, $3, $4)
	`, idgen.New(), h.UserID, h.TotalScore, h.Timestamp)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return tx.Commit()
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (*Score, error) {
	s := &Score{}
	var subScores, drivers []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, total_score, sub_scores, drivers, last_updated
		FROM scores WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.TotalScore, &subScores, &drivers, &s.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(subScores, &s.SubScores); err != nil {
		return nil, fmt.Errorf("unmarshal sub scores: %w", err)
	}
	if err := json.Unmarshal(drivers, &s.Drivers); err != nil {
		return nil, fmt.Errorf("unmarshal drivers: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) History(ctx context.Context, userID string, limit int) ([]*HistoryPoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, total_score, timestamp
		FROM score_history
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*HistoryPoint
	for rows.Next() {
		h := &HistoryPoint{}
		if err := rows.Scan(&h.UserID, &h.TotalScore, &h.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
