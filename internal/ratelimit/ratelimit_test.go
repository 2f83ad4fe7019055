package ratelimit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palabeo/palabeo/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(t *testing.T, clock *fakeClock) *ratelimit.MemoryStore {
	t.Helper()
	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0), ratelimit.WithClock(clock.Now))
	t.Cleanup(store.Close)
	return store
}

func TestLimiter_FixedWindow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := ratelimit.New(newMemoryStore(t, clock), 3, time.Minute)
	ctx := context.Background()

	for i := range 3 {
		res, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)

	// Other keys have their own window.
	res, err = limiter.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	clock.Advance(time.Minute)
	res, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestLimiter_Defaults(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.New(newMemoryStore(t, clock), 0, 0)

	var last *ratelimit.Result
	for range 21 {
		res, err := limiter.Allow(context.Background(), "ip")
		require.NoError(t, err)
		last = res
	}
	assert.Equal(t, 20, last.Limit)
	assert.False(t, last.Allowed)
}

func TestMemoryStore_RemoveExpired(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	store := newMemoryStore(t, clock)
	ctx := context.Background()

	_, _, err := store.Increment(ctx, "a", time.Second)
	require.NoError(t, err)
	_, _, err = store.Increment(ctx, "b", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Second)
	store.RemoveExpired()
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)
	limiter := ratelimit.New(store, 50, time.Minute)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(context.Background(), "shared")
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(time.Millisecond))
	assert.NotPanics(t, func() {
		store.Close()
		store.Close()
	})
}

func TestMemoryStore_CloseConcurrently(t *testing.T) {
	t.Parallel()

	for range 50 {
		store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(time.Millisecond))
		start := make(chan struct{})
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				store.Close()
			}()
		}
		close(start)
		wg.Wait()
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"garbage forwarded falls back", map[string]string{"X-Forwarded-For": "nope", "X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"ipv6", map[string]string{"X-Forwarded-For": "2001:db8::1"}, "2001:db8::1"},
		{"no headers", nil, "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "192.0.2.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ratelimit.ClientIP(r))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.New(newMemoryStore(t, clock), 2, time.Minute)

	var denied atomic.Int64
	var served atomic.Int64
	handler := ratelimit.Middleware(limiter,
		ratelimit.WithOnDenied(func(*http.Request) { denied.Add(1) }),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/translate", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	for range 2 {
		w := send()
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := send()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ratelimit.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Too many requests", body.Error)
	assert.NotEmpty(t, body.Message)

	assert.Equal(t, int64(2), served.Load())
	assert.Equal(t, int64(1), denied.Load())
}

func TestMiddleware_StoreFailureLetsRequestThrough(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratelimit.New(ratelimit.NewRedisStore(client), 1, time.Minute)
	_, err := limiter.Allow(context.Background(), "ip")
	require.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)

	handler := ratelimit.Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	url := os.Getenv("PALABEO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PALABEO_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	key := "test-" + time.Now().Format(time.RFC3339Nano)
	store := ratelimit.NewRedisStore(client)
	ctx := context.Background()

	count, resetAt, err := store.Increment(ctx, key, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), resetAt, time.Second)

	count, _, err = store.Increment(ctx, key, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
