package missions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/idgen"
	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/syncutil"
	"github.com/steadyhq/steady/internal/traces"
)

// EventSource resolves proof events and appends completion events.
type EventSource interface {
	Get(ctx context.Context, id string) (*events.Event, error)
	Create(ctx context.Context, userID string, in events.CreateInput) (*events.Event, error)
}

// CompletionResult is returned on a successful completion.
type CompletionResult struct {
	UserMission *UserMission
	Mission     *Mission
}

// Service runs the assignment state machine.
type Service struct {
	store  Store
	events EventSource
	locks  *syncutil.ShardedMutex
	logger *slog.Logger
}

// NewService creates a mission service
func NewService(store Store, ev EventSource, locks *syncutil.ShardedMutex, logger *slog.Logger) *Service {
	return &Service{store: store, events: ev, locks: locks, logger: logger}
}

// ActiveForUser lists the user's assigned/in_progress assignments.
func (s *Service) ActiveForUser(ctx context.Context, userID string) ([]*Assignment, error) {
	return s.store.ActiveAssignments(ctx, userID)
}

// Assign gives the user a mission of the given type unless one is already
// active. Selection is first-by-creation over the currently active catalog.
// The already-active check plus the insert is a read-then-write sequence,
// serialized per user to prevent duplicate assignment under concurrency.
func (s *Service) Assign(ctx context.Context, userID string, typ MissionType, now time.Time) (*Assignment, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	active, err := s.store.ActiveAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		if a.Mission != nil && a.Mission.Type == typ && a.Mission.WindowCovers(now) {
			return nil, ErrAlreadyAssigned
		}
	}

	candidates, err := s.store.ListActiveMissions(ctx, typ, now)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoneAvailable
	}
	mission := candidates[0]

	um := &UserMission{
		ID:            idgen.WithPrefix("umis"),
		UserID:        userID,
		MissionID:     mission.ID,
		Status:        StatusAssigned,
		ProgressCount: 0,
		CreatedAt:     now.UTC(),
	}
	if err := s.store.InsertAssignment(ctx, um); err != nil {
		return nil, err
	}

	metrics.MissionsAssignedTotal.WithLabelValues(string(typ)).Inc()
	s.logger.Info("mission assigned", "user_id", userID, "mission", mission.Code, "type", typ)

	return &Assignment{UserMission: um, Mission: mission}, nil
}

// Progress adds increment (default 1) to the assignment's counter and
// marks it in_progress. Reaching the target never completes here.
func (s *Service) Progress(ctx context.Context, userID, missionID string, increment int) (*Assignment, error) {
	if increment <= 0 {
		increment = 1
	}

	a, err := s.store.ActiveAssignment(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}

	a.UserMission.ProgressCount += increment
	a.UserMission.Status = StatusInProgress
	if err := s.store.UpdateAssignment(ctx, a.UserMission); err != nil {
		return nil, err
	}
	return a, nil
}

// Complete transitions the user's active assignment to completed.
//
// Fails with ErrNoActiveAssignment when none exists, ErrAlreadyTerminal
// for completed/expired rows, and ErrInvalidProof when the supplied proof
// event is not owned by the user. On success the progress count is forced
// to the target and one completion event is appended. Crediting reward
// points is the caller's side effect, not part of this transition.
func (s *Service) Complete(ctx context.Context, userID, missionID, proofEventID string, now time.Time) (*CompletionResult, error) {
	ctx, span := traces.StartSpan(ctx, "missions.Complete",
		traces.UserID(userID), traces.MissionID(missionID))
	defer span.End()

	a, err := s.store.LatestAssignment(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}
	if a.UserMission.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}

	if proofEventID != "" {
		proof, err := s.events.Get(ctx, proofEventID)
		if err != nil || proof.UserID != userID {
			return nil, ErrInvalidProof
		}
	}

	prevStatus := a.UserMission.Status
	prevProgress := a.UserMission.ProgressCount

	completedAt := now.UTC()
	a.UserMission.Status = StatusCompleted
	a.UserMission.ProgressCount = a.Mission.TargetCount
	a.UserMission.CompletedAt = &completedAt
	if err := s.store.UpdateAssignment(ctx, a.UserMission); err != nil {
		return nil, err
	}

	props := map[string]any{
		"missionCode":  a.Mission.Code,
		"rewardPoints": a.Mission.RewardPoints,
	}
	if proofEventID != "" {
		props["proofEventId"] = proofEventID
	}
	if _, err := s.events.Create(ctx, userID, events.CreateInput{
		EventType:  events.TypeMissionCompleted,
		Category:   events.CategoryEngagement,
		Timestamp:  now,
		Properties: props,
	}); err != nil {
		// Roll the transition back so a retry can complete once the event
		// log recovers. A row must never sit terminal without its
		// completion event on record.
		a.UserMission.Status = prevStatus
		a.UserMission.ProgressCount = prevProgress
		a.UserMission.CompletedAt = nil
		if rbErr := s.store.UpdateAssignment(ctx, a.UserMission); rbErr != nil {
			s.logger.Error("failed to roll back mission completion",
				"user_id", userID, "mission", a.Mission.Code, "error", rbErr)
		}
		return nil, fmt.Errorf("append completion event: %w", err)
	}

	metrics.MissionsCompletedTotal.Inc()
	s.logger.Info("mission completed", "user_id", userID, "mission", a.Mission.Code)

	return &CompletionResult{UserMission: a.UserMission, Mission: a.Mission}, nil
}

// ExpireDue sweeps every active assignment whose window has passed.
// Idempotent: a second run right after the first changes nothing.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.MissionsExpiredTotal.Add(float64(n))
		s.logger.Info("missions expired", "count", n)
	}
	return n, nil
}

// SeedCatalog inserts catalog entries, skipping codes already present.
func (s *Service) SeedCatalog(ctx context.Context, entries []*Mission) error {
	for _, m := range entries {
		if m.ID == "" {
			m.ID = idgen.WithPrefix("mis")
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		if err := s.store.InsertMission(ctx, m); err != nil {
			return fmt.Errorf("seed mission %s: %w", m.Code, err)
		}
	}
	return nil
}
