package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces tenant snapshots in a shared Redis.
const DefaultRedisPrefix = "tenant:"

// RedisCache keeps tenant snapshots in Redis so every instance behind the
// load balancer sees the same invalidations.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisCache wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedisCache(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

// Get treats Redis failures as misses; the directory remains the source of truth.
func (c *RedisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "tenant cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}

	var t Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.WarnContext(ctx, "tenant cache entry corrupt", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return &t, true
}

// Set stores t as JSON with a Redis expiry of ttl.
func (c *RedisCache) Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tenant: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("tenant cache write: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.prefix + key
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("tenant cache delete: %w", err)
	}
	return nil
}
