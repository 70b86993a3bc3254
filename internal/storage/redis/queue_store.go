// Package redis persists the crawl queue and the run lock in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

// Default keys.
const (
	DefaultQueueKey = "crawl:queue"
	DefaultLockKey  = "crawl:lock"
	DefaultLockTTL  = 2 * time.Hour
)

// NewClient parses redisURL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// QueueStore keeps the queue as a JSON array under a single key.
type QueueStore struct {
	client redis.Cmdable
	key    string
}

// NewQueueStore returns a QueueStore on key.
func NewQueueStore(client redis.Cmdable, key string) *QueueStore {
	if key == "" {
		key = DefaultQueueKey
	}
	return &QueueStore{client: client, key: key}
}

// Load returns the saved queue. A missing key yields an empty queue.
func (s *QueueStore) Load(ctx context.Context) ([]crawler.Combination, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []crawler.Combination{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	var queue []crawler.Combination
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	if queue == nil {
		queue = []crawler.Combination{}
	}
	return queue, nil
}

// Save overwrites the saved queue.
func (s *QueueStore) Save(ctx context.Context, queue []crawler.Combination) error {
	if queue == nil {
		queue = []crawler.Combination{}
	}
	raw, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a single-holder lock with expiry, shared by every process that
// points at the same Redis.
type Locker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewLocker returns a Locker on key. A non-positive ttl uses DefaultLockTTL.
func NewLocker(client redis.Cmdable, key string, ttl time.Duration) *Locker {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock with SET NX PX under a fresh token.
func (l *Locker) Acquire(ctx context.Context) (crawler.Lease, bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", l.key, err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &lease{locker: l, token: token}, true, nil
}

type lease struct {
	locker *Locker
	token  string
}

// Renew resets the TTL while the key still holds this lease's token.
func (ls *lease) Renew(ctx context.Context) error {
	l := ls.locker
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, ls.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("renew %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("renew %s: %w", l.key, crawler.ErrLockLost)
	}
	return nil
}

// Release deletes the key only while it still holds this lease's token.
func (ls *lease) Release(ctx context.Context) error {
	l := ls.locker
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, ls.token).Err(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.key, err)
	}
	return nil
}
