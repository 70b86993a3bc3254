package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

// QueueStore holds the crawl queue in memory.
type QueueStore struct {
	mu    sync.Mutex
	queue []crawler.Combination
	saves int
}

// NewQueueStore returns an empty QueueStore.
func NewQueueStore() *QueueStore {
	return &QueueStore{}
}

// Load returns a copy of the saved queue.
func (s *QueueStore) Load(_ context.Context) ([]crawler.Combination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]crawler.Combination{}, s.queue...), nil
}

// Save replaces the saved queue with a copy of queue.
func (s *QueueStore) Save(_ context.Context, queue []crawler.Combination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]crawler.Combination{}, queue...)
	s.saves++
	return nil
}

// Saves counts Save calls.
func (s *QueueStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Locker is a process-local run lock.
type Locker struct {
	mu         sync.Mutex
	held       bool
	generation uint64
}

// NewLocker returns an unlocked Locker.
func NewLocker() *Locker {
	return &Locker{}
}

// Acquire takes the lock if it is free.
func (l *Locker) Acquire(_ context.Context) (crawler.Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.generation++
	return &lease{locker: l, generation: l.generation}, true, nil
}

// Held reports whether the lock is currently taken.
func (l *Locker) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Expire drops the lock as if its TTL ran out. The old lease can no longer
// renew it.
func (l *Locker) Expire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.generation++
}

type lease struct {
	locker     *Locker
	generation uint64
}

func (ls *lease) owned() bool {
	return ls.locker.held && ls.locker.generation == ls.generation
}

func (ls *lease) Renew(_ context.Context) error {
	ls.locker.mu.Lock()
	defer ls.locker.mu.Unlock()
	if !ls.owned() {
		return crawler.ErrLockLost
	}
	return nil
}

func (ls *lease) Release(_ context.Context) error {
	ls.locker.mu.Lock()
	defer ls.locker.mu.Unlock()
	if ls.owned() {
		ls.locker.held = false
	}
	return nil
}
