// Package cache provides a small TTL cache abstraction used by the topic
// registry (runtime config overrides) and prompt storage (active template
// bodies). An in-process map is used by default; a Redis-backed
// implementation is swapped in when Redis is configured, so a cold replica
// does not stampede Postgres.
package cache

import "context"

// Cache is a byte-oriented TTL cache. Callers marshal their own values.
// A miss is reported as (nil, false, nil); only transport-level failures
// against a remote backend return a non-nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
