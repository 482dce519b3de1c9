package risk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/syncutil"
)

// EventAppender writes risk events into the event log so feature
// computation's risk counters see them.
type EventAppender interface {
	Create(ctx context.Context, userID string, in events.CreateInput) (*events.Event, error)
}

// Service manages risk profiles.
type Service struct {
	store    Store
	appender EventAppender
	locks    *syncutil.ShardedMutex
	logger   *slog.Logger
}

// NewService creates a risk service
func NewService(store Store, appender EventAppender, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		appender: appender,
		locks:    syncutil.NewShardedMutex(),
		logger:   logger,
	}
}

// Profile returns the user's risk profile. Users never flagged get a
// synthesized ok profile; nothing is persisted until the first flag.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Profile{
			UserID:    userID,
			RiskScore: 0,
			Status:    StatusOK,
			Flags:     []Flag{},
			UpdatedAt: time.Now().UTC(),
		}, nil
	}
	return p, err
}

// Status returns just the derived status for redemption gating.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

// Flag records a risk observation. Flags are deduplicated by code; a
// duplicate returns the profile unchanged with ErrDuplicateFlag. Each
// accepted flag adds its weight to the accumulator and re-derives the
// status. The read-modify-write is serialized per user.
func (s *Service) Flag(ctx context.Context, userID, code, details string, weight int) (*Profile, error) {
	if code == "" || weight < 0 {
		return nil, ErrInvalidFlag
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	now := time.Now().UTC()
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		p = &Profile{UserID: userID, Flags: []Flag{}}
	} else if err != nil {
		return nil, err
	}

	for _, f := range p.Flags {
		if f.Code == code {
			return p, ErrDuplicateFlag
		}
	}

	p.Flags = append(p.Flags, Flag{Code: code, Details: details, Timestamp: now})
	p.RiskScore += weight
	p.Status = statusFor(p.RiskScore, len(p.Flags))
	p.UpdatedAt = now

	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, err
	}

	if _, err := s.appender.Create(ctx, userID, events.CreateInput{
		EventType: events.TypeRiskFlagRaised,
		Category:  events.CategoryRisk,
		Timestamp: now,
		Properties: map[string]any{
			"code":   code,
			"weight": weight,
			"status": string(p.Status),
		},
	}); err != nil {
		s.logger.Warn("failed to append risk event", "user_id", userID, "code", code, "error", err)
	}

	metrics.RiskFlagsTotal.WithLabelValues(code).Inc()
	s.logger.Info("risk flag raised",
		"user_id", userID,
		"code", code,
		"risk_score", p.RiskScore,
		"status", p.Status,
	)

	return p, nil
}
