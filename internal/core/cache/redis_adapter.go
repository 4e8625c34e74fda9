package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter implements the Cache interface using Redis.
type RedisAdapter struct {
	client *redis.Client
}

var _ Cache = (*RedisAdapter)(nil)

// NewRedisAdapter creates a new Redis cache adapter.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
func NewRedisAdapter(redisURL string) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &RedisAdapter{client: redis.NewClient(opts)}, nil
}

// Get retrieves a value from Redis by key.
func (r *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value in Redis with the specified TTL.
func (r *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from Redis by key.
func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// IncrField increments a hash field with HINCRBY.
func (r *RedisAdapter) IncrField(ctx context.Context, key, field string, delta int64) error {
	if err := r.client.HIncrBy(ctx, key, field, delta).Err(); err != nil {
		return fmt.Errorf("failed to increment %s[%s]: %w", key, field, err)
	}
	return nil
}

// Counters reads a hash with HGETALL and parses every field as an integer.
func (r *RedisAdapter) Counters(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read counters %s: %w", key, err)
	}

	counters := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s[%s] is not an integer: %w", key, field, err)
		}
		counters[field] = n
	}
	return counters, nil
}

// Ping checks if Redis is reachable.
func (r *RedisAdapter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
