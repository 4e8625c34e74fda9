package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Melaeke/omim/internal/core/cache"
	"github.com/Melaeke/omim/internal/features/banners/domain"
)

const creativeKeyPrefix = "creative"

// ErrCorruptCreative is returned by Get when the cached value cannot be decoded.
var ErrCorruptCreative = errors.New("corrupt cached creative")

// RedisCreativeRepository implements ports.CreativeRepository using the cache adaptation.
type RedisCreativeRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisCreativeRepository creates a new RedisCreativeRepository. A ttl of 0 means no expiration.
func NewRedisCreativeRepository(c cache.Cache, ttl time.Duration) *RedisCreativeRepository {
	return &RedisCreativeRepository{
		cache: c,
		ttl:   ttl,
	}
}

func creativeKey(req domain.AdRequest) string {
	return fmt.Sprintf("%s:%s:%s", creativeKeyPrefix, req.BannerType, req.PlacementID)
}

// Save stores the creative in the cache.
func (r *RedisCreativeRepository) Save(ctx context.Context, req domain.AdRequest, creative *domain.Creative) error {
	data, err := json.Marshal(creative)
	if err != nil {
		return fmt.Errorf("failed to marshal creative: %w", err)
	}

	if err := r.cache.Set(ctx, creativeKey(req), data, r.ttl); err != nil {
		return fmt.Errorf("failed to save creative to cache: %w", err)
	}

	return nil
}

// Get retrieves the creative from the cache.
func (r *RedisCreativeRepository) Get(ctx context.Context, req domain.AdRequest) (*domain.Creative, error) {
	data, err := r.cache.Get(ctx, creativeKey(req))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get creative from cache: %w", err)
	}

	var creative domain.Creative
	if err := json.Unmarshal(data, &creative); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptCreative, err)
	}

	return &creative, nil
}

// Delete removes the creative from the cache.
func (r *RedisCreativeRepository) Delete(ctx context.Context, req domain.AdRequest) error {
	if err := r.cache.Delete(ctx, creativeKey(req)); err != nil {
		return fmt.Errorf("failed to delete creative from cache: %w", err)
	}
	return nil
}
