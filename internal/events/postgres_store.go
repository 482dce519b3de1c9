package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed event store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the events table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id         VARCHAR(36) PRIMARY KEY,
			user_id    VARCHAR(128) NOT NULL,
			event_type VARCHAR(255) NOT NULL,
			category   VARCHAR(20) NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL,
			properties JSONB,
			device_id  VARCHAR(128),
			risk_score DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(timestamp DESC);
	`)
	return err
}

func (p *PostgresStore) Insert(ctx context.Context, e *Event) error {
	var props []byte
	if e.Properties != nil {
		var err error
		props, err = json.Marshal(e.Properties)
		if err != nil {
			return fmt.Errorf("marshal properties: %w", err)
		}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO events (id, user_id, event_type, category, timestamp, properties, device_id, risk_score)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`, e.ID, e.UserID, e.EventType, string(e.Category), e.Timestamp, props, e.DeviceID, e.RiskScore)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Event, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_type, category, timestamp, properties, COALESCE(device_id, ''), risk_score
		FROM events WHERE id = $1
	`, id)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

func (p *PostgresStore) ListSince(ctx context.Context, userID string, since time.Time) ([]*Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, event_type, category, timestamp, properties, COALESCE(device_id, ''), risk_score
		FROM events
		WHERE user_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM events WHERE timestamp >= $1 ORDER BY user_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var category string
	var props []byte
	err := row.Scan(&e.ID, &e.UserID, &e.EventType, &category, &e.Timestamp, &props, &e.DeviceID, &e.RiskScore)
	if err != nil {
		return nil, err
	}
	e.Category = Category(category)
	if len(props) > 0 {
		if err := json.Unmarshal(props, &e.Properties); err != nil {
			return nil, fmt.Errorf("unmarshal properties: %w", err)
		}
	}
	return e, nil
}
