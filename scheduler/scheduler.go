// Package scheduler запускает периодические задачи движка.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper distributes rewards of tournaments left in COMPLETED.
type Sweeper interface {
	SweepCompleted(ctx context.Context) (int, error)
}

type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

// New schedules the reward sweep every interval, starting right away.
// Runs never overlap: a slow sweep pushes the next one back.
func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reward sweep interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "scheduler"))

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			n, err := sweeper.SweepCompleted(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "reward sweep finished with errors", slog.Int("distributed", n), slog.Any("error", err))
				return
			}
			if n > 0 {
				logger.InfoContext(ctx, "reward sweep distributed pending tournaments", slog.Int("distributed", n))
			}
		}),
		gocron.WithName("reward-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule reward sweep: %w", err)
	}

	return &Scheduler{sched: sched, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started")
}

func (s *Scheduler) Shutdown() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}
