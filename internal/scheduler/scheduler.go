// Package scheduler triggers crawl runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

// Runner is the work fired on each tick.
type Runner interface {
	Run(ctx context.Context) (crawler.RunSummary, error)
}

// Config controls the schedule.
type Config struct {
	Spec       string
	RunOnStart bool
}

// Scheduler wraps robfig/cron and drives a Runner.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	cfg    Config
	logger *zap.Logger
	wg     sync.WaitGroup
}

// New creates a Scheduler. Overlapping ticks are skipped while a run is in flight.
func New(runner Runner, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 1h"
	}
	cronLogger := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the crawl job and starts the cron loop. With RunOnStart a
// run is also fired immediately in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	job := cron.FuncJob(func() { s.runOnce(ctx) })
	if _, err := s.cron.AddJob(s.cfg.Spec, job); err != nil {
		return fmt.Errorf("cron.AddJob(%q): %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.cfg.Spec))

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnce(ctx)
		}()
	}
	return nil
}

// Stop halts the schedule and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	summary, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, crawler.ErrRunInProgress):
		s.logger.Info("crawl run skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("crawl run failed", zap.String("run_id", summary.RunID), zap.Error(err))
	default:
		s.logger.Info("crawl run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("combinations_done", summary.CombinationsDone),
			zap.Int("combinations_left", summary.CombinationsLeft),
			zap.Duration("duration", summary.Duration),
		)
	}
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("cron", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("cron", keysAndValues))
}
