package rewards

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed reward store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the rewards table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rewards (
			id            VARCHAR(36) PRIMARY KEY,
			partner_id    VARCHAR(128),
			type          VARCHAR(32) NOT NULL,
			title         VARCHAR(255) NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			cost_points   BIGINT NOT NULL,
			value_display VARCHAR(128) NOT NULL DEFAULT '',
			terms_url     VARCHAR(512),
			active_from   TIMESTAMPTZ NOT NULL,
			active_to     TIMESTAMPTZ NOT NULL,
			CONSTRAINT chk_cost_positive CHECK (cost_points > 0)
		);
	`)
	return err
}

const rewardColumns = `id, COALESCE(partner_id, ''), type, title, description,
	cost_points, value_display, COALESCE(terms_url, ''), active_from, active_to`

func (p *PostgresStore) Insert(ctx context.Context, r *Reward) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rewards (id, partner_id, type, title, description,
			cost_points, value_display, terms_url, active_from, active_to)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.PartnerID, r.Type, r.Title, r.Description,
		r.CostPoints, r.ValueDisplay, r.TermsURL, r.ActiveFrom, r.ActiveTo)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Reward, error) {
	r := &Reward{}
	err := p.db.QueryRowContext(ctx, `
		SELECT `+rewardColumns+` FROM rewards WHERE id = $1
	`, id).Scan(&r.ID, &r.PartnerID, &r.Type, &r.Title, &r.Description,
		&r.CostPoints, &r.ValueDisplay, &r.TermsURL, &r.ActiveFrom, &r.ActiveTo)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *PostgresStore) ListActive(ctx context.Context, now time.Time) ([]*Reward, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+rewardColumns+` FROM rewards
		WHERE active_from <= $1 AND active_to >= $1
		ORDER BY cost_points ASC, id ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Reward
	for rows.Next() {
		r := &Reward{}
		if err := rows.Scan(&r.ID, &r.PartnerID, &r.Type, &r.Title, &r.Description,
			&r.CostPoints, &r.ValueDisplay, &r.TermsURL, &r.ActiveFrom, &r.ActiveTo); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
