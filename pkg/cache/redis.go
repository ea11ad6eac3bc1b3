package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed TTL cache, used in multi-replica deployments so a
// cold replica does not stampede Postgres for runtime config / templates.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache. keyPrefix namespaces keys so
// multiple caches (registry overrides, prompt templates) can share one
// Redis instance without collision.
func NewRedis(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: keyPrefix, ttl: ttl}
}

func (c *Redis) key(key string) string {
	return c.prefix + ":" + key
}

// Get returns the cached value. A Redis miss is (nil, false, nil); a
// transport error is returned as-is so the caller can degrade to the static
// definition with a logged warning, per spec §4.1.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value under the cache's configured TTL.
func (c *Redis) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, c.key(key), value, c.ttl).Err()
}
