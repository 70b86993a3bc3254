// Package extract derives structured fields from job postings with a
// generative model, rotating across API credentials when one is throttled.
package extract

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
	"github.com/JakeFAU/afl-job-crawler/internal/metrics"
)

// Default retry settings.
const (
	DefaultMaxAttempts = 32
	DefaultBackoff     = 60 * time.Second
)

// Generator sends a prompt to a model bound to one credential and returns
// the raw text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option customizes a Service.
type Option func(*Service)

// WithMaxAttempts caps the number of rate-limited attempts per call.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the wait applied after an unstructured rate limit.
func WithBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

// WithSleep replaces the wait function.
func WithSleep(fn SleepFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithStartIndex pins the initial credential instead of picking one at random.
func WithStartIndex(i int) Option {
	return func(s *Service) {
		s.startIndex = &i
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service implements crawler.Extractor.
type Service struct {
	generators  []Generator
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
	startIndex  *int
	logger      *zap.Logger

	mu     sync.Mutex
	cursor Cursor
}

// NewService builds a Service over one generator per credential.
func NewService(generators []Generator, opts ...Option) (*Service, error) {
	if len(generators) == 0 {
		return nil, ErrNoCredentials
	}
	s := &Service{
		generators:  generators,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	start := rand.IntN(len(generators))
	if s.startIndex != nil {
		start = ((*s.startIndex % len(generators)) + len(generators)) % len(generators)
	}
	s.cursor = Cursor{Index: start, Size: len(generators)}
	return s, nil
}

// Cursor returns the current credential position.
func (s *Service) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Analyze extracts the structured fields of posting.
func (s *Service) Analyze(ctx context.Context, posting crawler.Posting) (crawler.Extraction, error) {
	prompt := BuildPrompt(posting)

	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cursor = cursor
		s.mu.Unlock()
	}()

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		text, err := s.generators[cursor.Index].Generate(ctx, prompt)
		if err == nil {
			ex, parseErr := ParseExtraction(text)
			if parseErr != nil {
				metrics.ObserveExtraction(metrics.OutcomeFailed)
				return crawler.Extraction{}, fmt.Errorf("posting %s: %w", posting.ID, parseErr)
			}
			metrics.ObserveExtraction(metrics.OutcomeSucceeded)
			s.logger.Debug("posting analyzed",
				zap.String("job_id", posting.ID),
				zap.Int("credential", cursor.Index),
			)
			return ex, nil
		}
		if !IsRateLimit(err) {
			metrics.ObserveExtraction(metrics.OutcomeFailed)
			return crawler.Extraction{}, fmt.Errorf("posting %s: generate: %w", posting.ID, err)
		}

		lastErr = err
		metrics.ObserveExtraction(metrics.OutcomeRateLimited)
		metrics.ObserveCredentialRotation()
		cursor = cursor.Next()
		s.logger.Warn("rate limited, rotating credential",
			zap.String("job_id", posting.ID),
			zap.Int("attempt", attempt+1),
			zap.Int("next_credential", cursor.Index),
			zap.Error(err),
		)
		wait := s.backoff
		if delay, ok := RetryDelay(err); ok {
			wait = delay
			s.logger.Debug("honoring server retry delay", zap.String("job_id", posting.ID), zap.Duration("delay", delay))
		} else if IsStructuredRejection(err) {
			continue
		}
		if err := s.sleep(ctx, wait); err != nil {
			return crawler.Extraction{}, fmt.Errorf("posting %s: backoff: %w", posting.ID, err)
		}
	}
	return crawler.Extraction{}, fmt.Errorf("posting %s after %d attempts: %w: %w",
		posting.ID, s.maxAttempts, ErrRetriesExhausted, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
