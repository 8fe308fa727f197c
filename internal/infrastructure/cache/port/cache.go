package port

import (
	"context"
	"time"
)

// Cache is the minimal key-value contract used by the application.
// Implementations must be safe for concurrent use, and all methods are
// context-aware so callers control timeouts and cancellation.
type Cache interface {
	// Get fetches the value for key. Misses are reported as ("", ErrMiss);
	// a non-nil error other than ErrMiss indicates a transport failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes the given keys and returns how many were removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way so callers can tell misses
// apart from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (errMiss) Error() string { return "cache: miss" }
