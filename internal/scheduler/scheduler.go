package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rickgao/daily-prices/internal/pipeline"
)

// Config holds scheduler configuration.
type Config struct {
	Spec       string        // Cron expression (e.g. "0 6 * * 1-5")
	Timeout    time.Duration // Max duration of one run (default: 2h)
	RunOnStart bool          // Run once immediately on Start
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Spec:    "@daily",
		Timeout: 2 * time.Hour,
	}
}

// Scheduler runs the pipeline on a cron schedule.
type Scheduler struct {
	cfg    Config
	runner pipeline.Runner
	logger *slog.Logger
	cron   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler. When other triggers share the runner it should
// be the same *pipeline.Tracker wrapping a *pipeline.Exclusive.
func New(cfg Config, runner pipeline.Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Spec, err)
	}

	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cronLogger{logger})),
	}, nil
}

// Start begins scheduling runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.cfg.Spec, s.trigger); err != nil {
		return fmt.Errorf("add schedule: %w", err)
	}
	s.cron.Start()

	s.logger.Info("scheduler started",
		"spec", s.cfg.Spec,
		"timeout", s.cfg.Timeout,
	)

	if s.cfg.RunOnStart {
		s.trigger()
	}

	return nil
}

// Next returns the next activation time, or zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop gracefully shuts down the scheduler, waiting for an active run.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trigger starts one run in the background.
func (s *Scheduler) trigger() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()
	}()
}

// runOnce executes a single scheduled run.
func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress), errors.Is(err, pipeline.ErrClosed):
		s.logger.Warn("skipping scheduled run", "err", err)
	case err != nil:
		s.logger.Error("scheduled run failed",
			"run_id", res.RunID,
			"err", err,
		)
	default:
		s.logger.Info("scheduled run complete",
			"run_id", res.RunID,
			"status", res.Status,
			"duration", res.Duration,
			"next", s.Next(),
		)
	}
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
