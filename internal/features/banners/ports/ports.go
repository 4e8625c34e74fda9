package ports

import (
	"context"
	"time"

	"github.com/Melaeke/omim/internal/features/banners/domain"
)

// SuccessFunc receives the banner once its content is ready to display.
type SuccessFunc func(banner Banner)

// FailureFunc receives the details of a failed reload.
type FailureFunc func(bannerType domain.BannerType, event domain.EventName, details domain.ErrorDetails, err error)

// ClickFunc is invoked when the user interacts with the displayed banner.
type ClickFunc func(bannerType domain.BannerType)

// Banner is a reloadable advertisement slot backed by a single network.
type Banner interface {
	// Reload fetches fresh content. It returns immediately; the outcome is
	// delivered later through exactly one of success or failure.
	Reload(ctx context.Context, success SuccessFunc, failure FailureFunc, click ClickFunc)

	IsBannerOnScreen() bool
	SetBannerOnScreen(onScreen bool)
	IsNeedToRetain() bool
	IsPossibleToReload() bool
	Type() domain.BannerType
}

// LoadedBanner is a Banner that exposes what its last successful reload fetched.
type LoadedBanner interface {
	Banner
	// Creative returns the current creative or nil.
	Creative() *domain.Creative
	// Click reports a user tap on the current creative.
	Click() error
	// ReleaseIfStale drops a creative loaded at or before cutoff unless the
	// banner needs retaining. It reports whether a creative was dropped.
	ReleaseIfStale(cutoff time.Time) bool
}

// BannerService defines the primary port for placement operations.
type BannerService interface {
	Load(ctx context.Context, placementID string) (*domain.LoadResult, error)
	Click(ctx context.Context, placementID string, bannerType domain.BannerType) error
	SetOnScreen(placementID string, bannerType domain.BannerType, onScreen bool) error
	State(placementID string) ([]domain.BannerState, error)
	Stats(ctx context.Context, placementID string) ([]domain.BannerStat, error)
	Placements() []domain.Placement
}

// NetworkClient fetches creatives from an ad network.
type NetworkClient interface {
	FetchCreative(ctx context.Context, req domain.AdRequest) (*domain.Creative, error)
	// SupportsBannerType returns true if this client serves the given network.
	SupportsBannerType(bannerType domain.BannerType) bool
}

// StatsRepository defines the secondary port for rotation counters.
type StatsRepository interface {
	RecordShow(ctx context.Context, placementID string, bannerType domain.BannerType) error
	RecordClick(ctx context.Context, placementID string, bannerType domain.BannerType) error
	GetStats(ctx context.Context, placementID string) ([]domain.BannerStat, error)
}

// CreativeRepository caches creatives between reloads.
type CreativeRepository interface {
	Save(ctx context.Context, req domain.AdRequest, creative *domain.Creative) error
	// Get returns nil, nil when nothing is cached.
	Get(ctx context.Context, req domain.AdRequest) (*domain.Creative, error)
	Delete(ctx context.Context, req domain.AdRequest) error
}
