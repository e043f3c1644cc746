package github

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	applog "github.com/sebuszqo/FinanceHub/internal/log"
)

const cacheKeyPrefix = "github:"

// Cache holds upstream responses for a short time. A miss or a cache
// failure both fall through to GitHub.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type RedisCache struct {
	client *redis.Client
	logger *applog.Logger
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, logger: applog.Default("github-cache")}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// cacheKey is scoped to the token so a relinked account never sees the
// previous account's repositories.
func cacheKey(token string, parts ...string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:8]) + ":" + strings.Join(parts, ":")
}

// cached serves key from cache or calls load and stores its result.
func cached[T any](ctx context.Context, cache Cache, ttl time.Duration, key string, load func() (T, error)) (T, error) {
	if cache != nil {
		if raw, ok := cache.Get(ctx, key); ok {
			var value T
			if err := json.Unmarshal(raw, &value); err == nil {
				return value, nil
			}
		}
	}
	value, err := load()
	if err != nil {
		return value, err
	}
	if cache != nil {
		if raw, err := json.Marshal(value); err == nil {
			cache.Set(ctx, key, raw, ttl)
		}
	}
	return value, nil
}
