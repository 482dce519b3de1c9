package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Scheduler drives the scoring run and the mission job on their own
// tickers. A panic in one tick is logged and the loop keeps going.
type Scheduler struct {
	scoring         *ScoringRun
	missionJob      *MissionJob
	scoringInterval time.Duration
	missionInterval time.Duration
	logger          *slog.Logger
	stop            chan struct{}
	running         atomic.Bool
}

// NewScheduler creates the background job scheduler.
func NewScheduler(scoring *ScoringRun, missionJob *MissionJob, scoringInterval, missionInterval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scoring:         scoring,
		missionJob:      missionJob,
		scoringInterval: scoringInterval,
		missionInterval: missionInterval,
		logger:          logger,
		stop:            make(chan struct{}),
	}
}

// Running reports whether the scheduler loop is actively running.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Start begins the job loops. Call in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	scoringTicker := time.NewTicker(s.scoringInterval)
	defer scoringTicker.Stop()
	missionTicker := time.NewTicker(s.missionInterval)
	defer missionTicker.Stop()

	s.logger.Info("scheduler started",
		"scoringInterval", s.scoringInterval,
		"missionInterval", s.missionInterval,
	)

	// Run the mission job once immediately so a fresh deployment hands
	// out missions without waiting a full interval.
	s.safeRun(ctx, "missions", func(ctx context.Context) {
		s.missionJob.Run(ctx, time.Now())
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-scoringTicker.C:
			s.safeRun(ctx, "scoring", func(ctx context.Context) {
				s.scoring.Run(ctx, time.Now())
			})
		case <-missionTicker.C:
			s.safeRun(ctx, "missions", func(ctx context.Context) {
				s.missionJob.Run(ctx, time.Now())
			})
		}
	}
}

// Stop signals the scheduler to stop.
func (s *Scheduler) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *Scheduler) safeRun(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in batch job", "job", name, "panic", fmt.Sprint(r))
		}
	}()
	fn(ctx)
}
