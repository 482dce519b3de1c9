// Package batch runs the periodic background jobs: the scoring sweep
// over recently active users and the mission expiry + assignment job.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/score"
)

// UserLister supplies the set of users a batch run should touch.
type UserLister interface {
	ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// Scorer recomputes a single user's score.
type Scorer interface {
	Recompute(ctx context.Context, userID string, now time.Time) (*score.Score, error)
}

// ScoringRun recomputes scores for all recently active users with
// bounded parallelism. One user failing never aborts the run.
type ScoringRun struct {
	users    UserLister
	scorer   Scorer
	lookback time.Duration
	workers  int
	logger   *slog.Logger
}

// NewScoringRun creates a batch scoring runner.
func NewScoringRun(users UserLister, scorer Scorer, lookback time.Duration, workers int, logger *slog.Logger) *ScoringRun {
	if workers < 1 {
		workers = 1
	}
	return &ScoringRun{
		users:    users,
		scorer:   scorer,
		lookback: lookback,
		workers:  workers,
		logger:   logger,
	}
}

// Run executes one full scoring sweep. It returns the number of users
// scored successfully and the number that failed.
func (r *ScoringRun) Run(ctx context.Context, now time.Time) (scored, failed int) {
	start := time.Now()

	userIDs, err := r.users.ActiveUserIDs(ctx, now.Add(-r.lookback))
	if err != nil {
		r.logger.Warn("scoring run failed to list active users", "error", err)
		return 0, 0
	}
	if len(userIDs) == 0 {
		return 0, 0
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		work    = make(chan string)
		workers = r.workers
	)
	if workers > len(userIDs) {
		workers = len(userIDs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range work {
				if _, err := r.scorer.Recompute(ctx, userID, now); err != nil {
					metrics.BatchUserFailuresTotal.WithLabelValues("scoring").Inc()
					r.logger.Warn("scoring run failed for user", "userId", userID, "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				scored++
				mu.Unlock()
			}
		}()
	}

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			r.logger.Warn("scoring run cancelled", "scored", scored, "failed", failed)
			return scored, failed
		case work <- userID:
		}
	}
	close(work)
	wg.Wait()

	metrics.ScoringBatchDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("scoring run completed",
		"users", len(userIDs),
		"scored", scored,
		"failed", failed,
		"duration", time.Since(start),
	)
	return scored, failed
}
