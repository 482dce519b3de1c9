package missions

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

// NewPostgresStore creates a new PostgreSQL-backed mission store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the missions and user_missions tables
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS missions (
			id                VARCHAR(36) PRIMARY KEY,
			code              VARCHAR(64) NOT NULL UNIQUE,
			type              VARCHAR(10) NOT NULL,
			title             VARCHAR(255) NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			target_count      INT NOT NULL DEFAULT 1,
			reward_points     BIGINT NOT NULL DEFAULT 0,
			score_impact_hint VARCHAR(255) NOT NULL DEFAULT '',
			active_from       TIMESTAMPTZ NOT NULL,
			active_to         TIMESTAMPTZ NOT NULL,
			conditions        JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_missions (
			id             VARCHAR(36) PRIMARY KEY,
			user_id        VARCHAR(128) NOT NULL,
			mission_id     VARCHAR(36) NOT NULL REFERENCES missions(id),
			status         VARCHAR(16) NOT NULL DEFAULT 'assigned',
			progress_count INT NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at   TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_user_missions_user ON user_missions(user_id, status);
		CREATE INDEX IF NOT EXISTS idx_user_missions_status ON user_missions(status);
	`)
	return err
}

func (p *PostgresStore) InsertMission(ctx context.Context, m *Mission) error {
	var conditions []byte
	if m.Conditions != nil {
		var err error
		conditions, err = json.Marshal(m.Conditions)
		if err != nil {
			return fmt.Errorf("marshal conditions: %w", err)
		}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO missions (id, code, type, title, description, target_count,
			reward_points, score_impact_hint, active_from, active_to, conditions, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (code) DO NOTHING
	`, m.ID, m.Code, string(m.Type), m.Title, m.Description, m.TargetCount,
		m.RewardPoints, m.ScoreImpactHint, m.ActiveFrom, m.ActiveTo, conditions, m.CreatedAt)
	return err
}

const missionColumns = `id, code, type, title, description, target_count,
	reward_points, score_impact_hint, active_from, active_to, conditions, created_at`

func (p *PostgresStore) GetMission(ctx context.Context, id string) (*Mission, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+missionColumns+` FROM missions WHERE id = $1
	`, id)
	m, err := scanMission(row)
	if err == sql.ErrNoRows {
		return nil, ErrMissionNotFound
	}
	return m, err
}

func (p *PostgresStore) ListActiveMissions(ctx context.Context, typ MissionType, now time.Time) ([]*Mission, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+missionColumns+` FROM missions
		WHERE type = $1 AND active_from <= $2 AND active_to >= $2
		ORDER BY created_at ASC
	`, string(typ), now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PostgresStore) InsertAssignment(ctx context.Context, um *UserMission) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_missions (id, user_id, mission_id, status, progress_count, created_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, um.ID, um.UserID, um.MissionID, string(um.Status), um.ProgressCount, um.CreatedAt, um.CompletedAt)
	return err
}

func (p *PostgresStore) UpdateAssignment(ctx context.Context, um *UserMission) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE user_missions
		SET status = $2, progress_count = $3, completed_at = $4
		WHERE id = $1
	`, um.ID, string(um.Status), um.ProgressCount, um.CompletedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoActiveAssignment
	}
	return nil
}

const assignmentJoin = `
	SELECT um.id, um.user_id, um.mission_id, um.status, um.progress_count, um.created_at, um.completed_at,
	       m.id, m.code, m.type, m.title, m.description, m.target_count,
	       m.reward_points, m.score_impact_hint, m.active_from, m.active_to, m.conditions, m.created_at
	FROM user_missions um
	JOIN missions m ON m.id = um.mission_id`

func (p *PostgresStore) ActiveAssignments(ctx context.Context, userID string) ([]*Assignment, error) {
	rows, err := p.db.QueryContext(ctx, assignmentJoin+`
		WHERE um.user_id = $1 AND um.status IN ('assigned', 'in_progress')
		ORDER BY um.created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ActiveAssignment(ctx context.Context, userID, missionID string) (*Assignment, error) {
	row := p.db.QueryRowContext(ctx, assignmentJoin+`
		WHERE um.user_id = $1 AND um.mission_id = $2 AND um.status IN ('assigned', 'in_progress')
		ORDER BY um.created_at ASC
		LIMIT 1
	`, userID, missionID)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoActiveAssignment
	}
	return a, err
}

func (p *PostgresStore) LatestAssignment(ctx context.Context, userID, missionID string) (*Assignment, error) {
	row := p.db.QueryRowContext(ctx, assignmentJoin+`
		WHERE um.user_id = $1 AND um.mission_id = $2
		ORDER BY um.created_at DESC
		LIMIT 1
	`, userID, missionID)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoActiveAssignment
	}
	return a, err
}

func (p *PostgresStore) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE user_missions um
		SET status = 'expired'
		FROM missions m
		WHERE m.id = um.mission_id
		  AND um.status IN ('assigned', 'in_progress')
		  AND m.active_to < $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMission(row rowScanner) (*Mission, error) {
	m := &Mission{}
	var typ string
	var conditions []byte
	err := row.Scan(&m.ID, &m.Code, &typ, &m.Title, &m.Description, &m.TargetCount,
		&m.RewardPoints, &m.ScoreImpactHint, &m.ActiveFrom, &m.ActiveTo, &conditions, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Type = MissionType(typ)
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &m.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal conditions: %w", err)
		}
	}
	return m, nil
}

func scanAssignment(row rowScanner) (*Assignment, error) {
	um := &UserMission{}
	m := &Mission{}
	var umStatus, mType string
	var conditions []byte
	err := row.Scan(&um.ID, &um.UserID, &um.MissionID, &umStatus, &um.ProgressCount, &um.CreatedAt, &um.CompletedAt,
		&m.ID, &m.Code, &mType, &m.Title, &m.Description, &m.TargetCount,
		&m.RewardPoints, &m.ScoreImpactHint, &m.ActiveFrom, &m.ActiveTo, &conditions, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	um.Status = AssignmentStatus(umStatus)
	m.Type = MissionType(mType)
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &m.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal conditions: %w", err)
		}
	}
	return &Assignment{UserMission: um, Mission: m}, nil
}
