package features

import (
	"context"
	"database/sql"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed snapshot store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the feature_snapshots table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS feature_snapshots (
			user_id              VARCHAR(128) PRIMARY KEY,
			streak_days          INT NOT NULL DEFAULT 0,
			active_days_30d      INT NOT NULL DEFAULT 0,
			active_days_90d      INT NOT NULL DEFAULT 0,
			meaningful_events_30d INT NOT NULL DEFAULT 0,
			diversity_index_90d  INT NOT NULL DEFAULT 0,
			dispute_count_90d    INT NOT NULL DEFAULT 0,
			reversal_count_90d   INT NOT NULL DEFAULT 0,
			velocity_flags_30d   INT NOT NULL DEFAULT 0,
			risk_flags_90d       INT NOT NULL DEFAULT 0,
			inactivity_weeks     INT NOT NULL DEFAULT 0,
			completion_rate_90d  DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			tenure_days          INT NOT NULL DEFAULT 0,
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (p *PostgresStore) Upsert(ctx context.Context, s *Snapshot) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO feature_snapshots (
			user_id, streak_days, active_days_30d, active_days_90d,
			meaningful_events_30d, diversity_index_90d, dispute_count_90d,
			reversal_count_90d, velocity_flags_30d, risk_flags_90d,
			inactivity_weeks, completion_rate_90d, tenure_days, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (user_id) DO UPDATE SET
			streak_days           = EXCLUDED.streak_days,
			active_days_30d       = EXCLUDED.active_days_30d,
			active_days_90d       = EXCLUDED.active_days_90d,
			meaningful_events_30d = EXCLUDED.meaningful_events_30d,
			diversity_index_90d   = EXCLUDED.diversity_index_90d,
			dispute_count_90d     = EXCLUDED.dispute_count_90d,
			reversal_count_90d    = EXCLUDED.reversal_count_90d,
			velocity_flags_30d    = EXCLUDED.velocity_flags_30d,
			risk_flags_90d        = EXCLUDED.risk_flags_90d,
			inactivity_weeks      = EXCLUDED.inactivity_weeks,
			completion_rate_90d   = EXCLUDED.completion_rate_90d,
			tenure_days           = EXCLUDED.tenure_days,
			updated_at            = EXCLUDED.updated_at
	`, s.UserID, s.StreakDays, s.ActiveDays30d, s.ActiveDays90d,
		s.MeaningfulEvents30d, s.DiversityIndex90d, s.DisputeCount90d,
		s.ReversalCount90d, s.VelocityFlags30d, s.RiskFlags90d,
		s.InactivityWeeks, s.CompletionRate90d, s.TenureDays, s.UpdatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (*Snapshot, error) {
	s := &Snapshot{}
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, streak_days, active_days_30d, active_days_90d,
		       meaningful_events_30d, diversity_index_90d, dispute_count_90d,
		       reversal_count_90d, velocity_flags_30d, risk_flags_90d,
		       inactivity_weeks, completion_rate_90d, tenure_days, updated_at
		FROM feature_snapshots WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.StreakDays, &s.ActiveDays30d, &s.ActiveDays90d,
		&s.MeaningfulEvents30d, &s.DiversityIndex90d, &s.DisputeCount90d,
		&s.ReversalCount90d, &s.VelocityFlags30d, &s.RiskFlags90d,
		&s.InactivityWeeks, &s.CompletionRate90d, &s.TenureDays, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
