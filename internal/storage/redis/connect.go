// Package redis connects to the optional Redis instance shared by the rate
// limiter and the translation cache.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidURL        = errors.New("invalid redis connection URL")
	ErrNotReady          = errors.New("redis did not become ready in time")
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)

// Options controls how Connect retries.
type Options struct {
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

// DefaultOptions tries three times, two seconds apart, for at most 15 seconds.
func DefaultOptions() Options {
	return Options{
		RetryAttempts:  3,
		RetryInterval:  2 * time.Second,
		ConnectTimeout: 15 * time.Second,
	}
}

// Connect parses url and returns a client once the server answers PING.
func Connect(ctx context.Context, url string, opts Options) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	clientOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	for range max(1, opts.RetryAttempts) {
		client := redis.NewClient(clientOpts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(opts.RetryInterval):
		}
	}

	return nil, ErrNotReady
}

// Healthcheck returns a probe that pings client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
