package crawler

import (
	"context"
	"errors"
)

// Lister returns every posting id currently listed for a field/region pair.
type Lister interface {
	ListIDs(ctx context.Context, field, region string) ([]string, error)
}

// PostingFetcher loads the full content of a single posting.
type PostingFetcher interface {
	Posting(ctx context.Context, id string) (Posting, error)
}

// Extractor derives structured fields from a posting.
type Extractor interface {
	Analyze(ctx context.Context, posting Posting) (Extraction, error)
}

// JobStore persists the set of currently known jobs.
type JobStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	DiffNew(ctx context.Context, ids []string) ([]string, error)
	Insert(ctx context.Context, job Job) error
	PurgeExpired(ctx context.Context, currentIDs []string, field, region string) (int, error)
	Search(ctx context.Context, filter SearchFilter) ([]Job, error)
}

// QueueStore persists the pending crawl queue between invocations.
// Load returns an empty slice when nothing has been saved yet.
type QueueStore interface {
	Load(ctx context.Context) ([]Combination, error)
	Save(ctx context.Context, queue []Combination) error
}

// Locker serializes coordinator runs across processes.
type Locker interface {
	Acquire(ctx context.Context) (lease Lease, acquired bool, err error)
}

// Lease is a held run lock. Renew extends its expiry and returns an error
// wrapping ErrLockLost once another holder may have taken it. Release is
// idempotent and never removes a lock held by someone else.
type Lease interface {
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

var (
	// ErrDuplicateJob is returned by JobStore.Insert when the id is already stored.
	ErrDuplicateJob = errors.New("job already exists")
	// ErrLockLost is returned by Lease.Renew when the lock expired or changed hands.
	ErrLockLost = errors.New("run lock lost")
)
