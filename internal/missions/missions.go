// Package missions runs the mission catalog and the per-user assignment
// state machine.
//
// Assignment states: assigned -> in_progress -> completed (terminal), with
// expired (terminal) reachable from assigned or in_progress only. Reaching
// the target count never auto-completes; completion is its own explicit
// action.
package missions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissionNotFound    = errors.New("mission not found")
	ErrNoActiveAssignment = errors.New("no active assignment for mission")
	ErrAlreadyTerminal    = errors.New("assignment already completed or expired")
	ErrInvalidProof       = errors.New("proof event does not belong to user")
	ErrNoneAvailable      = errors.New("no active mission of this type to assign")
	ErrAlreadyAssigned    = errors.New("user already holds an active mission of this type")
)

// MissionType is the assignment cadence.
type MissionType string

const (
	TypeDaily  MissionType = "daily"
	TypeWeekly MissionType = "weekly"
)

// AssignmentStatus is the state of a user's assignment.
type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "assigned"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusCompleted  AssignmentStatus = "completed"
	StatusExpired    AssignmentStatus = "expired"
)

// Terminal reports whether a status admits no further transitions.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Active reports whether an assignment still counts against the
// one-active-per-type rule.
func (s AssignmentStatus) Active() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// Mission is a catalog entry, effectively immutable once seeded.
type Mission struct {
	ID              string         `json:"id"`
	Code            string         `json:"code"`
	Type            MissionType    `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	TargetCount     int            `json:"targetCount"`
	RewardPoints    int64          `json:"rewardPoints"`
	ScoreImpactHint string         `json:"scoreImpactHint,omitempty"`
	ActiveFrom      time.Time      `json:"activeFrom"`
	ActiveTo        time.Time      `json:"activeTo"`
	Conditions      map[string]any `json:"conditions,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// WindowCovers reports whether the catalog window contains t.
func (m *Mission) WindowCovers(t time.Time) bool {
	return !t.Before(m.ActiveFrom) && !t.After(m.ActiveTo)
}

// UserMission is one user's assignment of a catalog mission.
type UserMission struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	MissionID     string           `json:"missionId"`
	Status        AssignmentStatus `json:"status"`
	ProgressCount int              `json:"progressCount"`
	CreatedAt     time.Time        `json:"createdAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

// Assignment pairs a user's assignment with its catalog entry.
type Assignment struct {
	UserMission *UserMission `json:"userMission"`
	Mission     *Mission     `json:"mission"`
}

// Store persists the catalog and assignments
type Store interface {
	InsertMission(ctx context.Context, m *Mission) error
	GetMission(ctx context.Context, id string) (*Mission, error)
	// ListActiveMissions returns catalog entries of the type whose window
	// covers now, ordered by creation (selection is first-by-creation).
	ListActiveMissions(ctx context.Context, typ MissionType, now time.Time) ([]*Mission, error)

	InsertAssignment(ctx context.Context, um *UserMission) error
	UpdateAssignment(ctx context.Context, um *UserMission) error
	// ActiveAssignments returns a user's assigned/in_progress assignments
	// joined with their catalog entries.
	ActiveAssignments(ctx context.Context, userID string) ([]*Assignment, error)
	// ActiveAssignment returns the user's active assignment of one mission.
	ActiveAssignment(ctx context.Context, userID, missionID string) (*Assignment, error)
	// LatestAssignment returns the user's most recent assignment of one
	// mission regardless of status, so completion can tell an already
	// terminal row apart from a missing one.
	LatestAssignment(ctx context.Context, userID, missionID string) (*Assignment, error)
	// ExpireDue transitions every active assignment whose mission window
	// ended before now to expired, returning how many rows changed.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
