// Package risk tracks per-user risk profiles.
//
// Profiles are created lazily on the first flag. The risk score is a
// monotonic non-negative accumulator; the status is always derived from
// the profile, never set directly. Status "shadow" gates reward
// redemption.
package risk

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("risk profile not found")
	ErrDuplicateFlag = errors.New("flag code already present")
	ErrInvalidFlag   = errors.New("invalid risk flag")
)

// Status is the derived risk state.
type Status string

const (
	StatusOK     Status = "ok"
	StatusWatch  Status = "watch"
	StatusShadow Status = "shadow"
)

// Accumulator thresholds for status derivation. A profile with more than
// maxOKFlags flags is held at watch even below the watch threshold.
const (
	watchThreshold  = 30
	shadowThreshold = 70
	maxOKFlags      = 3
)

// Flag is one deduplicated risk observation.
type Flag struct {
	Code      string    `json:"code"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the per-user risk row.
type Profile struct {
	UserID    string    `json:"userId"`
	RiskScore int       `json:"riskScore"`
	Status    Status    `json:"status"`
	Flags     []Flag    `json:"flags"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// statusFor derives the status from the accumulator and flag count.
func statusFor(riskScore, flagCount int) Status {
	switch {
	case riskScore >= shadowThreshold:
		return StatusShadow
	case riskScore >= watchThreshold || flagCount > maxOKFlags:
		return StatusWatch
	default:
		return StatusOK
	}
}

// Store persists risk profiles
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}
