// Package cache stores traced path fragments between atlas builds.
//
// Tracing a full-resolution mask is the dominant cost of a build, and most
// masks do not change between runs. Fragments are keyed by the SHA-256 of the
// mask bytes plus the tracer settings, so an edited mask or a changed
// threshold misses naturally without any invalidation step.
//
// Backends:
//   - [FileCache]: files under the user cache directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for builds on several machines
//   - [NullCache]: caching disabled (--no-cache)
package cache

import (
	"context"
	"time"
)

// TTLTrace is how long a traced fragment stays cached.
const TTLTrace = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
