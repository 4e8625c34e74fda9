package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("key not found")

// Cache defines the caching operations interface.
// It is a port that can be implemented by different cache providers.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns ErrNotFound (wrapped) when the key is missing.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified key and TTL.
	// TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache by key.
	Delete(ctx context.Context, key string) error

	// IncrField atomically adds delta to a counter field of a hash key.
	IncrField(ctx context.Context, key, field string, delta int64) error

	// Counters returns all counter fields of a hash key. Missing keys yield an empty map.
	Counters(ctx context.Context, key string) (map[string]int64, error)

	// Ping checks if the cache service is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
