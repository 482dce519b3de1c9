// Package score turns feature snapshots into the 0-1000 reliability score.
//
// The engine itself is a pure function over a feature snapshot; persistence
// is a single atomic step (current score upsert plus one history point) so
// Score and ScoreHistory can never diverge.
package score

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("score not found")

// Sub-score caps and the total range.
const (
	MaxConsistency = 300
	MaxCapacity    = 250
	MaxIntegrity   = 250
	MaxEngagement  = 200
	MaxTotal       = 1000
)

// SubScores are the four weighted components of the total.
type SubScores struct {
	Consistency       int `json:"consistency"`
	Capacity          int `json:"capacity"`
	Integrity         int `json:"integrity"`
	EngagementQuality int `json:"engagement_quality"`
}

// Drivers explain the score in human-readable terms.
type Drivers struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// Result is the output of one engine run.
type Result struct {
	TotalScore int       `json:"totalScore"`
	SubScores  SubScores `json:"subScores"`
	Drivers    Drivers   `json:"drivers"`
}

// Score is the current score row for a user, overwritten on recompute.
type Score struct {
	UserID      string    `json:"userId"`
	TotalScore  int       `json:"totalScore"`
	SubScores   SubScores `json:"subScores"`
	Drivers     Drivers   `json:"drivers"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// HistoryPoint is one append-only score observation.
type HistoryPoint struct {
	UserID     string    `json:"userId"`
	TotalScore int       `json:"totalScore"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store persists scores
type Store interface {
	// Save upserts the current score and appends the history point in one
	// atomic step.
	Save(ctx context.Context, s *Score, h *HistoryPoint) error
	Get(ctx context.Context, userID string) (*Score, error)
	// History returns up to limit points, newest first.
	History(ctx context.Context, userID string, limit int) ([]*HistoryPoint, error)
}
