// Package features derives per-user behavioral metrics from the event log.
//
// A Snapshot is computed from a single 90-day event fetch (the 30-day
// window is an in-memory sub-slice of the same set, never a second query)
// so all sub-features are internally consistent within one call. Snapshots
// are overwritten on each computation; only score history is retained.
//
// Day bucketing uses UTC calendar days everywhere.
package features

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// Window lengths for the rolling feature windows.
const (
	LookbackDays  = 90
	ShortWindow   = 30 * 24 * time.Hour
	streakHardCap = 365
)

// Snapshot is the feature vector for one user, overwritten per computation.
type Snapshot struct {
	UserID              string    `json:"userId"`
	StreakDays          int       `json:"streakDays"`
	ActiveDays30d       int       `json:"activeDays30d"`
	ActiveDays90d       int       `json:"activeDays90d"`
	MeaningfulEvents30d int       `json:"meaningfulEvents30d"`
	DiversityIndex90d   int       `json:"diversityIndex90d"`
	DisputeCount90d     int       `json:"disputeCount90d"`
	ReversalCount90d    int       `json:"reversalCount90d"`
	VelocityFlags30d    int       `json:"velocityFlags30d"`
	RiskFlags90d        int       `json:"riskFlags90d"`
	InactivityWeeks     int       `json:"inactivityWeeks"`
	CompletionRate90d   float64   `json:"completionRate90d"`
	TenureDays          int       `json:"tenureDays"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Store persists feature snapshots
type Store interface {
	Upsert(ctx context.Context, s *Snapshot) error
	Get(ctx context.Context, userID string) (*Snapshot, error)
}
