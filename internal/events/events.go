// Package events is the append-only behavioral event log.
//
// Every component writes here: user actions arrive through the ingestion
// endpoint, mission completions and reward redemptions append engagement
// events, risk flagging appends risk events, and the scoring pipeline
// appends a system event after each run. Events are immutable once created
// and never deleted; the 90-day windows used by feature computation are
// query-time filters, not retention policy.
package events

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCategory = errors.New("invalid event category")
	ErrEmptyEventType  = errors.New("event type must not be empty")
	ErrNotFound        = errors.New("event not found")
)

// Category classifies an event.
type Category string

const (
	CategoryBehavior    Category = "behavior"
	CategoryTransaction Category = "transaction"
	CategoryEngagement  Category = "engagement"
	CategoryRisk        Category = "risk"
	CategorySystem      Category = "system"
)

// ValidCategory reports whether c is one of the fixed category values.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryBehavior, CategoryTransaction, CategoryEngagement, CategoryRisk, CategorySystem:
		return true
	}
	return false
}

// Well-known event types emitted by the engine itself.
const (
	TypeMissionCompleted = "ENG.MISSION_COMPLETED"
	TypeRewardRedeemed   = "ENG.REWARD_REDEEMED"
	TypeScoreComputed    = "SYS.SCORE_COMPUTED"
	TypeRiskFlagRaised   = "RISK.FLAG_RAISED"
	TypeVelocitySpike    = "RISK.VELOCITY_SPIKE"
)

// Event is one immutable log entry.
type Event struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	EventType  string         `json:"eventType"` // namespaced, e.g. "ENG.MISSION_COMPLETED"
	Category   Category       `json:"category"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
	DeviceID   string         `json:"deviceId,omitempty"`
	RiskScore  *float64       `json:"riskScore,omitempty"` // in [0,1] when present
}

// Store persists events
type Store interface {
	Insert(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// ListSince returns all of a user's events with timestamp >= since,
	// newest first.
	ListSince(ctx context.Context, userID string, since time.Time) ([]*Event, error)
	// ActiveUserIDs returns the distinct user ids with at least one event
	// since the cutoff. Drives the batch scoring run.
	ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}
