package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/missions"
)

// MissionAssigner is the slice of the mission service the job needs.
type MissionAssigner interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	Assign(ctx context.Context, userID string, typ missions.MissionType, now time.Time) (*missions.Assignment, error)
}

// MissionJob expires overdue assignments and hands out fresh daily and
// weekly missions to recently active users.
type MissionJob struct {
	users    UserLister
	missions MissionAssigner
	lookback time.Duration
	logger   *slog.Logger
}

// NewMissionJob creates the mission expiry + assignment job.
func NewMissionJob(users UserLister, ma MissionAssigner, lookback time.Duration, logger *slog.Logger) *MissionJob {
	return &MissionJob{
		users:    users,
		missions: ma,
		lookback: lookback,
		logger:   logger,
	}
}

// Run executes one sweep: expiry first, then assignment. Holding an
// active mission of the same cadence is the common case and counts as
// a skip, not a failure.
func (j *MissionJob) Run(ctx context.Context, now time.Time) {
	expired, err := j.missions.ExpireDue(ctx, now)
	if err != nil {
		j.logger.Warn("mission expiry sweep failed", "error", err)
	} else if expired > 0 {
		j.logger.Info("expired overdue mission assignments", "count", expired)
	}

	userIDs, err := j.users.ActiveUserIDs(ctx, now.Add(-j.lookback))
	if err != nil {
		j.logger.Warn("mission job failed to list active users", "error", err)
		return
	}

	var assigned, skipped, failed int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			j.logger.Warn("mission job cancelled", "assigned", assigned)
			return
		}
		for _, typ := range []missions.MissionType{missions.TypeDaily, missions.TypeWeekly} {
			_, err := j.missions.Assign(ctx, userID, typ, now)
			switch {
			case err == nil:
				assigned++
			case errors.Is(err, missions.ErrAlreadyAssigned), errors.Is(err, missions.ErrNoneAvailable):
				skipped++
			default:
				metrics.BatchUserFailuresTotal.WithLabelValues("missions").Inc()
				j.logger.Warn("mission assignment failed for user",
					"userId", userID, "type", typ, "error", err)
				failed++
			}
		}
	}

	if assigned > 0 || failed > 0 {
		j.logger.Info("mission assignment sweep completed",
			"users", len(userIDs), "assigned", assigned, "skipped", skipped, "failed", failed)
	}
}
