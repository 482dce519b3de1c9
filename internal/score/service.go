package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/features"
	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/traces"
)

// EventAppender writes engine events back into the event log.
type EventAppender interface {
	Create(ctx context.Context, userID string, in events.CreateInput) (*events.Event, error)
}

// Broadcaster pushes score updates to connected realtime clients.
type Broadcaster interface {
	BroadcastScoreUpdated(userID string, totalScore int)
}

// Service runs the features -> engine -> persist pipeline.
type Service struct {
	computer  *features.Computer
	store     Store
	appender  EventAppender
	broadcast Broadcaster // nil disables realtime notifications
	logger    *slog.Logger
}

// NewService creates a scoring service
func NewService(computer *features.Computer, store Store, appender EventAppender, logger *slog.Logger) *Service {
	return &Service{computer: computer, store: store, appender: appender, logger: logger}
}

// WithBroadcaster attaches a realtime broadcaster.
func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.broadcast = b
	return s
}

// Recompute runs the full pipeline for one user. Idempotent and
// last-write-wins; concurrent recomputes for the same user race
// harmlessly, so no per-user lock is taken here.
func (s *Service) Recompute(ctx context.Context, userID string, now time.Time) (*Score, error) {
	ctx, span := traces.StartSpan(ctx, "score.Recompute", traces.UserID(userID))
	defer span.End()

	snap, err := s.computer.Compute(ctx, userID, now)
	if err != nil {
		metrics.ScoreComputationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("compute features: %w", err)
	}

	result := Compute(snap)
	span.SetAttributes(traces.TotalScore(result.TotalScore))

	current := &Score{
		UserID:      userID,
		TotalScore:  result.TotalScore,
		SubScores:   result.SubScores,
		Drivers:     result.Drivers,
		LastUpdated: now.UTC(),
	}
	point := &HistoryPoint{
		UserID:     userID,
		TotalScore: result.TotalScore,
		Timestamp:  now.UTC(),
	}
	if err := s.store.Save(ctx, current, point); err != nil {
		metrics.ScoreComputationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist score: %w", err)
	}

	// Close the loop: the computation itself is visible to the next run.
	if _, err := s.appender.Create(ctx, userID, events.CreateInput{
		EventType: events.TypeScoreComputed,
		Category:  events.CategorySystem,
		Timestamp: now,
		Properties: map[string]any{
			"totalScore": result.TotalScore,
		},
	}); err != nil {
		s.logger.Warn("failed to append score event", "user_id", userID, "error", err)
	}

	metrics.ScoreComputationsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("score computed",
		"user_id", userID,
		"total", result.TotalScore,
		"consistency", result.SubScores.Consistency,
		"capacity", result.SubScores.Capacity,
		"integrity", result.SubScores.Integrity,
		"engagement", result.SubScores.EngagementQuality,
	)

	if s.broadcast != nil {
		s.broadcast.BroadcastScoreUpdated(userID, result.TotalScore)
	}

	return current, nil
}

// Get returns the current score. When none exists yet it computes one on
// first read.
func (s *Service) Get(ctx context.Context, userID string) (*Score, []string, error) {
	current, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		current, err = s.Recompute(ctx, userID, time.Now().UTC())
	}
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.computer.Latest(ctx, userID)
	if err != nil {
		// Score without a snapshot should not happen; degrade to no actions.
		return current, nil, nil
	}
	return current, NextActions(snap), nil
}

// History returns up to limit history points, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*HistoryPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.History(ctx, userID, limit)
}
