// Package scheduler repeats pipeline runs on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/pipeline"
	"github.com/go-co-op/gocron"
)

// Runner performs one pipeline run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Scheduler runs the pipeline immediately and then every interval. A run
// that is still in progress when the next one is due is not overlapped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
}

// New creates a Scheduler. Call Start to begin running.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the job and returns immediately. Runs use a context
// derived from ctx that Stop cancels.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.runner.Run(ctx); err != nil {
			s.logger.Warn("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		s.cancel()
		return err
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop cancels the in-flight run and waits for the scheduler to halt.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
}
