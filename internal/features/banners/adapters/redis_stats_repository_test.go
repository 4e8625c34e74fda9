package adapters

import (
	"context"
	"testing"

	"github.com/Melaeke/omim/internal/features/banners/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStatsRepository(t *testing.T) {
	c, mr := newTestCache(t)
	repo := NewRedisStatsRepository(c)
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		stats, err := repo.GetStats(ctx, "placepage")
		require.NoError(t, err)
		assert.Empty(t, stats)
	})

	t.Run("Counters", func(t *testing.T) {
		require.NoError(t, repo.RecordShow(ctx, "placepage", domain.BannerTypeMopub))
		require.NoError(t, repo.RecordShow(ctx, "placepage", domain.BannerTypeMopub))
		require.NoError(t, repo.RecordShow(ctx, "placepage", domain.BannerTypeFacebook))
		require.NoError(t, repo.RecordClick(ctx, "placepage", domain.BannerTypeMopub))
		require.NoError(t, repo.RecordShow(ctx, "search", domain.BannerTypeGoogle))

		assert.Equal(t, "2", mr.HGet("stats:placepage", "mopub:shows"))

		stats, err := repo.GetStats(ctx, "placepage")
		require.NoError(t, err)
		assert.Equal(t, []domain.BannerStat{
			{BannerType: domain.BannerTypeFacebook, Shows: 1},
			{BannerType: domain.BannerTypeMopub, Shows: 2, Clicks: 1},
		}, stats)
	})

	t.Run("IgnoresForeignFields", func(t *testing.T) {
		mr.HSet("stats:other", "garbage", "5")
		mr.HSet("stats:other", "rb:clicks", "3")

		stats, err := repo.GetStats(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, []domain.BannerStat{{BannerType: domain.BannerTypeRB, Clicks: 3}}, stats)
	})
}
