package adapters

import (
	"context"
	"errors"

	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"

	"go.uber.org/zap"
)

// CachedNetworkClient serves creatives from a repository and only asks the
// network once the cached creative has expired.
type CachedNetworkClient struct {
	next ports.NetworkClient
	repo ports.CreativeRepository
}

// NewCachedNetworkClient wraps next with repo.
func NewCachedNetworkClient(next ports.NetworkClient, repo ports.CreativeRepository) *CachedNetworkClient {
	return &CachedNetworkClient{
		next: next,
		repo: repo,
	}
}

// FetchCreative returns the cached creative for the request's network and placement,
// falling back to the wrapped client. Cache failures never fail the fetch; an
// entry that cannot be decoded is evicted.
func (c *CachedNetworkClient) FetchCreative(ctx context.Context, req domain.AdRequest) (*domain.Creative, error) {
	log := logger.Get().With(
		zap.String("banner_type", string(req.BannerType)),
		zap.String("placement", req.PlacementID),
	)

	cached, err := c.repo.Get(ctx, req)
	if err != nil {
		log.Warn("Failed to read cached creative", zap.Error(err))
		if errors.Is(err, ErrCorruptCreative) {
			if err := c.repo.Delete(ctx, req); err != nil {
				log.Warn("Failed to evict cached creative", zap.Error(err))
			}
		}
	}
	if cached != nil {
		log.Debug("Serving cached creative", zap.String("creative_id", cached.ID))
		return cached, nil
	}

	creative, err := c.next.FetchCreative(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.repo.Save(ctx, req, creative); err != nil {
		log.Warn("Failed to cache creative", zap.Error(err))
	}

	return creative, nil
}

// SupportsBannerType delegates to the wrapped client.
func (c *CachedNetworkClient) SupportsBannerType(bannerType domain.BannerType) bool {
	return c.next.SupportsBannerType(bannerType)
}
