package adapters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Melaeke/omim/internal/core/cache"
	"github.com/Melaeke/omim/internal/features/banners/domain"
)

const (
	statsKeyPrefix = "stats"
	showsField     = "shows"
	clicksField    = "clicks"
)

// RedisStatsRepository implements ports.StatsRepository with one counter hash per placement.
type RedisStatsRepository struct {
	cache cache.Cache
}

// NewRedisStatsRepository creates a new RedisStatsRepository.
func NewRedisStatsRepository(c cache.Cache) *RedisStatsRepository {
	return &RedisStatsRepository{cache: c}
}

func statsKey(placementID string) string {
	return statsKeyPrefix + ":" + placementID
}

func (r *RedisStatsRepository) RecordShow(ctx context.Context, placementID string, bannerType domain.BannerType) error {
	if err := r.cache.IncrField(ctx, statsKey(placementID), string(bannerType)+":"+showsField, 1); err != nil {
		return fmt.Errorf("failed to record show: %w", err)
	}
	return nil
}

func (r *RedisStatsRepository) RecordClick(ctx context.Context, placementID string, bannerType domain.BannerType) error {
	if err := r.cache.IncrField(ctx, statsKey(placementID), string(bannerType)+":"+clicksField, 1); err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

// GetStats returns the counters of every banner type seen on the placement, sorted by type.
func (r *RedisStatsRepository) GetStats(ctx context.Context, placementID string) ([]domain.BannerStat, error) {
	counters, err := r.cache.Counters(ctx, statsKey(placementID))
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	byType := make(map[domain.BannerType]*domain.BannerStat)
	for field, value := range counters {
		bannerType, kind, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		stat, exists := byType[domain.BannerType(bannerType)]
		if !exists {
			stat = &domain.BannerStat{BannerType: domain.BannerType(bannerType)}
			byType[stat.BannerType] = stat
		}
		switch kind {
		case showsField:
			stat.Shows = int(value)
		case clicksField:
			stat.Clicks = int(value)
		}
	}

	stats := make([]domain.BannerStat, 0, len(byType))
	for _, stat := range byType {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].BannerType < stats[j].BannerType })

	return stats, nil
}
