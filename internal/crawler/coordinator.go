package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/metrics"
	"github.com/JakeFAU/afl-job-crawler/internal/taxonomy"
)

var (
	// ErrRunInProgress is returned when another run holds the crawl lock.
	ErrRunInProgress = errors.New("crawl run already in progress")
	// ErrHalted wraps the combination-level failure that stopped a run.
	ErrHalted = errors.New("crawl halted")
)

// Config controls Coordinator behavior.
type Config struct {
	Fields                []string
	Regions               []string
	MaxCombinationsPerRun int
	Topic                 string
	// LockRenewInterval renews the run lock in the background. Zero renews
	// only before each combination and queue write.
	LockRenewInterval time.Duration
}

// Deps are the collaborators a Coordinator drives. Locker and Publisher are optional.
type Deps struct {
	Queue     QueueStore
	Locker    Locker
	Lister    Lister
	Postings  PostingFetcher
	Extractor Extractor
	Store     JobStore
	Publisher Publisher
	Shuffle   Shuffler
}

// Coordinator walks the persisted field/region queue and runs the
// list → purge → diff → fetch → extract → insert pipeline for each entry.
type Coordinator struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// NewCoordinator validates deps and builds a Coordinator.
func NewCoordinator(cfg Config, deps Deps, logger *zap.Logger) (*Coordinator, error) {
	switch {
	case deps.Queue == nil:
		return nil, errors.New("queue store is required")
	case deps.Lister == nil:
		return nil, errors.New("lister is required")
	case deps.Postings == nil:
		return nil, errors.New("posting fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("extractor is required")
	case deps.Store == nil:
		return nil, errors.New("job store is required")
	}
	if len(CrossProduct(cfg.Fields, cfg.Regions)) == 0 {
		return nil, errors.New("at least one field and one region are required")
	}
	if deps.Shuffle == nil {
		deps.Shuffle = RandomShuffle
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{cfg: cfg, deps: deps, logger: logger}, nil
}

type comboStats struct {
	listed   int
	purged   int
	newIDs   int
	inserted int
	failed   int
}

// Run processes the queue until it drains, the per-run budget is spent, or a
// combination fails. A failure persists the queue unchanged and returns an
// error wrapping ErrHalted. The run lock is renewed before every queue write;
// once it is lost the run halts without writing the queue.
func (c *Coordinator) Run(ctx context.Context) (summary RunSummary, err error) {
	start := time.Now()
	summary.RunID = uuid.NewString()
	logger := c.logger.With(zap.String("run_id", summary.RunID))
	defer func() {
		summary.Duration = time.Since(start)
		outcome := metrics.OutcomeSucceeded
		switch {
		case errors.Is(err, ErrRunInProgress):
			outcome = metrics.OutcomeSkipped
		case err != nil:
			outcome = metrics.OutcomeFailed
		}
		metrics.ObserveRun(outcome, summary.Duration)
	}()

	var lease Lease
	if c.deps.Locker != nil {
		var acquired bool
		var lockErr error
		lease, acquired, lockErr = c.deps.Locker.Acquire(ctx)
		if lockErr != nil {
			return summary, fmt.Errorf("acquire run lock: %w", lockErr)
		}
		if !acquired {
			logger.Info("another crawl run holds the lock, skipping")
			return summary, ErrRunInProgress
		}
		defer func() {
			if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil {
				logger.Warn("release run lock failed", zap.Error(relErr))
			}
		}()

		if c.cfg.LockRenewInterval > 0 {
			runCtx, cancel := context.WithCancelCause(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				c.keepLease(runCtx, lease, cancel, logger)
			}()
			defer func() {
				cancel(nil)
				<-done
			}()
			ctx = runCtx
		}
	}

	queue, err := c.deps.Queue.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load queue: %w", err)
	}
	if State(queue) == NoQueue {
		queue = NewQueue(c.cfg.Fields, c.cfg.Regions, c.deps.Shuffle)
		if err := c.deps.Queue.Save(ctx, queue); err != nil {
			return summary, fmt.Errorf("save new queue: %w", err)
		}
		summary.QueueInitialized = true
		logger.Info("crawl queue initialized", zap.Int("combinations", len(queue)))
	}

	for State(queue) == Populated {
		if c.cfg.MaxCombinationsPerRun > 0 && summary.CombinationsDone >= c.cfg.MaxCombinationsPerRun {
			logger.Info("per-run combination budget reached", zap.Int("budget", c.cfg.MaxCombinationsPerRun))
			break
		}
		if err := c.renewLease(ctx, lease); err != nil {
			summary.Halted = true
			summary.CombinationsLeft = len(queue)
			logger.Error("run lock lost, halting run", zap.Error(err))
			return summary, fmt.Errorf("%w: %w", ErrHalted, err)
		}
		combo := queue[0]
		comboLogger := logger.With(
			zap.String("field", combo.Field),
			zap.String("field_name", taxonomy.FieldName(combo.Field)),
			zap.String("region", combo.Region),
			zap.String("region_name", taxonomy.RegionName(combo.Region)),
		)
		comboLogger.Info("crawling combination", zap.Int("remaining", len(queue)))

		stats, procErr := c.processCombination(ctx, combo, comboLogger)
		summary.Listed += stats.listed
		summary.Purged += stats.purged
		summary.New += stats.newIDs
		summary.Inserted += stats.inserted
		summary.FailedJobs += stats.failed

		if procErr != nil {
			metrics.ObserveCombination(metrics.OutcomeFailed)
			summary.Halted = true
			summary.CombinationsLeft = len(queue)
			if lockErr := c.renewLease(ctx, lease); lockErr != nil {
				comboLogger.Error("run lock lost, leaving queue to the new holder", zap.Error(lockErr))
				procErr = errors.Join(procErr, lockErr)
			} else if saveErr := c.deps.Queue.Save(context.WithoutCancel(ctx), queue); saveErr != nil {
				comboLogger.Error("persist queue after failure failed", zap.Error(saveErr))
			}
			comboLogger.Error("combination failed, halting run", zap.Error(procErr))
			return summary, fmt.Errorf("%w at %s: %w", ErrHalted, combo, procErr)
		}

		next := Advance(queue)
		if err := c.renewLease(ctx, lease); err != nil {
			metrics.ObserveCombination(metrics.OutcomeFailed)
			summary.Halted = true
			summary.CombinationsLeft = len(queue)
			comboLogger.Error("run lock lost before saving queue", zap.Error(err))
			return summary, fmt.Errorf("%w: save queue after %s: %w", ErrHalted, combo, err)
		}
		if err := c.deps.Queue.Save(ctx, next); err != nil {
			metrics.ObserveCombination(metrics.OutcomeFailed)
			summary.Halted = true
			summary.CombinationsLeft = len(queue)
			return summary, fmt.Errorf("%w: save queue after %s: %w", ErrHalted, combo, err)
		}
		queue = next
		summary.CombinationsDone++
		metrics.ObserveCombination(metrics.OutcomeSucceeded)
		comboLogger.Info("combination done",
			zap.Int("listed", stats.listed),
			zap.Int("purged", stats.purged),
			zap.Int("new", stats.newIDs),
			zap.Int("inserted", stats.inserted),
			zap.Int("failed", stats.failed),
		)
	}

	summary.CombinationsLeft = len(queue)
	logger.Info("crawl run finished",
		zap.Int("combinations_done", summary.CombinationsDone),
		zap.Int("combinations_left", summary.CombinationsLeft),
		zap.Int("inserted", summary.Inserted),
		zap.Int("purged", summary.Purged),
	)
	return summary, nil
}

// renewLease extends the run lock. A cancellation caused by a failed
// background renewal is reported as the lock loss; other cancellations still
// renew so the queue can be persisted on the way out.
func (c *Coordinator) renewLease(ctx context.Context, lease Lease) error {
	if lease == nil {
		return nil
	}
	if cause := context.Cause(ctx); errors.Is(cause, ErrLockLost) {
		return cause
	}
	return lease.Renew(context.WithoutCancel(ctx))
}

func (c *Coordinator) keepLease(ctx context.Context, lease Lease, cancel context.CancelCauseFunc, logger *zap.Logger) {
	ticker := time.NewTicker(c.cfg.LockRenewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lease.Renew(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("renew run lock failed, stopping run", zap.Error(err))
				if !errors.Is(err, ErrLockLost) {
					err = fmt.Errorf("%w: %w", ErrLockLost, err)
				}
				cancel(err)
				return
			}
		}
	}
}

func (c *Coordinator) processCombination(ctx context.Context, combo Combination, logger *zap.Logger) (comboStats, error) {
	var stats comboStats

	ids, err := c.deps.Lister.ListIDs(ctx, combo.Field, combo.Region)
	if err != nil {
		return stats, fmt.Errorf("list ids: %w", err)
	}
	ids = uniqueIDs(ids)
	stats.listed = len(ids)

	purged, err := c.deps.Store.PurgeExpired(ctx, ids, combo.Field, combo.Region)
	if err != nil {
		return stats, fmt.Errorf("purge expired: %w", err)
	}
	stats.purged = purged
	metrics.ObservePurged(purged)

	newIDs, err := c.deps.Store.DiffNew(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("diff new: %w", err)
	}
	stats.newIDs = len(newIDs)
	logger.Info("listing diffed",
		zap.Int("listed", stats.listed),
		zap.Int("purged", purged),
		zap.Int("new", stats.newIDs),
	)

	for _, id := range newIDs {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("interrupted: %w", err)
		}
		if err := c.processJob(ctx, combo, id, logger); err != nil {
			stats.failed++
			metrics.ObserveJob(metrics.OutcomeFailed)
			logger.Warn("job failed, skipping", zap.String("job_id", id), zap.Error(err))
			continue
		}
		stats.inserted++
		metrics.ObserveJob(metrics.OutcomeSucceeded)
	}
	return stats, nil
}

func (c *Coordinator) processJob(ctx context.Context, combo Combination, id string, logger *zap.Logger) error {
	posting, err := c.deps.Postings.Posting(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch posting: %w", err)
	}
	if posting.ID == "" {
		posting.ID = id
	}
	extraction, err := c.deps.Extractor.Analyze(ctx, posting)
	if err != nil {
		return fmt.Errorf("analyze posting: %w", err)
	}
	job := NewJob(combo, posting, extraction)
	if err := c.deps.Store.Insert(ctx, job); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	c.publish(ctx, job, logger)
	return nil
}

func (c *Coordinator) publish(ctx context.Context, job Job, logger *zap.Logger) {
	if c.deps.Publisher == nil || c.cfg.Topic == "" {
		return
	}
	if _, err := c.deps.Publisher.Publish(ctx, c.cfg.Topic, NewJobCreatedEvent(job)); err != nil {
		logger.Warn("publish job event failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
