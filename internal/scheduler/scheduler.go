// Package scheduler manages the daily summary trigger using the gocron
// library.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
)

// JobFunc is the work fired by the daily trigger.
type JobFunc func(ctx context.Context) error

// Scheduler owns the single daily summary job. It fires at the configured
// hour in the configured timezone; missed triggers are not backfilled.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       config.SummaryConfig
	job       JobFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler instance in the configured timezone.
func NewScheduler(cfg config.SummaryConfig, job JobFunc, logger *slog.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		job:       job,
	}, nil
}

// Start registers the daily job and starts the scheduler's internal ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			//nolint:gosec // schedule hour is validated to 0..23
			gocron.NewAtTime(uint(s.cfg.ScheduleHour), 0, 0),
		)),
		gocron.NewTask(func(ctx context.Context) {
			s.logger.Info("Running scheduled summary task")
			startTime := time.Now()
			if err := s.job(ctx); err != nil {
				s.logger.Error("Scheduled summary task failed", "error", err)
			}
			s.logger.Info("Finished scheduled summary task", "duration", time.Since(startTime))
		}, context.Background()),
		gocron.WithName("daily_summary"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule daily summary job: %w", err)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started",
		"hour", s.cfg.ScheduleHour, "timezone", s.cfg.Timezone)

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
