// Package ratelimit implements a fixed-window request limiter keyed by
// client IP. Counters live behind a Store so a single process can keep them
// in memory while several instances share them through Redis.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Store counts hits per key within a window.
type Store interface {
	// Increment adds one hit to key and returns the number of hits in the
	// current window and when that window ends. The first hit opens a new
	// window of the given length.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

type counter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired counters are dropped.
// Zero disables the background cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.now = now
	}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		counters:        make(map[string]*counter),
		now:             time.Now,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}
	return ms
}

// Increment implements Store.
func (ms *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	c, exists := ms.counters[key]
	if !exists || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		ms.counters[key] = c
	}
	c.count++

	return c.count, c.resetAt, nil
}

// Len returns the number of tracked keys.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.counters)
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.RemoveExpired()
		case <-ms.stopCleanup:
			return
		}
	}
}

// RemoveExpired drops counters whose window has ended.
func (ms *MemoryStore) RemoveExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, c := range ms.counters {
		if !now.Before(c.resetAt) {
			delete(ms.counters, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times, also
// concurrently.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stopCleanup) })
}

// RedisStore keeps counters in Redis so every instance shares them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store using client. Keys are prefixed with
// "ratelimit:".
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

// incrementScript opens the window on the first hit only, so later hits
// never extend it.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	vals, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	remaining := time.Duration(vals[1]) * time.Millisecond
	if remaining <= 0 {
		remaining = window
	}
	return vals[0], time.Now().Add(remaining), nil
}
