package translator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/validation"
)

// Cache stores translations by word and direction.
type Cache interface {
	// Get returns the cached translations and whether there were any.
	Get(ctx context.Context, key string) ([]domain.Translation, bool, error)
	Set(ctx context.Context, key string, translations []domain.Translation) error
}

// CacheKey is the key for word translated from one language to another.
// Words are compared case-insensitively.
func CacheKey(word string, from, to validation.Language) string {
	return "translation:" + string(from) + ":" + string(to) + ":" + strings.ToLower(word)
}

// RedisCache keeps translations as JSON values that expire after ttl.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache creates a cache. A zero ttl keeps entries forever.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.Translation, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var translations []domain.Translation
	if err := json.Unmarshal(data, &translations); err != nil {
		return nil, false, err
	}
	return translations, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, translations []domain.Translation) error {
	data, err := json.Marshal(translations)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]domain.Translation, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, []domain.Translation) error {
	return nil
}
