package usecase

import (
	"context"
	"log/slog"
	"time"

	"HealthFetcher/internal/ports"
)

// Scheduler wires the cron driver with the fetch cycle.
type Scheduler struct {
	driver ports.Scheduler
	cycle  *Cycle
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, cycle *Cycle, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, cycle: cycle, logger: logger}
}

// Start registers a full-catalog cycle with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.cycle == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.cycle.Run(ctx, nil)
		if err != nil {
			s.logger.Error("scheduled cycle failed", "trigger", trigger, "run_id", report.RunID, "error", err)
			return
		}
		s.logger.Info("scheduled cycle done",
			"trigger", trigger,
			"run_id", report.RunID,
			"succeeded", report.Succeeded(),
			"failed", report.Failed(),
			"lag", report.FetchedAt.Sub(trigger).Round(time.Millisecond),
		)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
