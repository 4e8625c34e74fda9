package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"

	"github.com/google/uuid"
)

// BannerOptions configures a NetworkBanner.
type BannerOptions struct {
	PlacementID string
	Width       int
	Height      int
	BidFloor    float64
	// MinReloadInterval is the cooldown after a successful load.
	MinReloadInterval time.Duration
	// Retain keeps the banner alive once it has loaded a creative.
	Retain bool
}

// NetworkBanner is a Banner whose content comes from a NetworkClient.
//
// Each Reload ends in exactly one success or failure callback, always called
// from a goroutine other than the caller's. Click callbacks only fire for the
// creative of the last successful reload.
type NetworkBanner struct {
	bannerType domain.BannerType
	client     ports.NetworkClient
	opts       BannerOptions
	now        func() time.Time

	mu       sync.Mutex
	onScreen bool
	loading  bool
	creative *domain.Creative
	click    ports.ClickFunc
	loadedAt time.Time
}

var _ ports.LoadedBanner = (*NetworkBanner)(nil)

// NewNetworkBanner creates a banner of the given type. The client must serve that type.
func NewNetworkBanner(bannerType domain.BannerType, client ports.NetworkClient, opts BannerOptions) (*NetworkBanner, error) {
	if bannerType == domain.BannerTypeNone || bannerType == "" {
		return nil, domain.ErrInvalidBannerType
	}
	if !client.SupportsBannerType(bannerType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedNetwork, bannerType)
	}

	return &NetworkBanner{
		bannerType: bannerType,
		client:     client,
		opts:       opts,
		now:        time.Now,
	}, nil
}

// Type returns the network of the banner; it never changes.
func (b *NetworkBanner) Type() domain.BannerType {
	return b.bannerType
}

func (b *NetworkBanner) IsBannerOnScreen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.onScreen
}

func (b *NetworkBanner) SetBannerOnScreen(onScreen bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onScreen = onScreen
}

// IsNeedToRetain reports whether the owner must keep this banner and its creative.
func (b *NetworkBanner) IsNeedToRetain() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needToRetainLocked()
}

func (b *NetworkBanner) needToRetainLocked() bool {
	if b.loading {
		return true
	}
	if b.creative == nil {
		return false
	}
	return b.onScreen || b.opts.Retain
}

func (b *NetworkBanner) IsPossibleToReload() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloadBlockedLocked() == nil
}

func (b *NetworkBanner) reloadBlockedLocked() error {
	switch {
	case b.loading:
		return domain.ErrReloadInProgress
	case b.onScreen:
		return domain.ErrBannerOnScreen
	case !b.loadedAt.IsZero() && b.now().Sub(b.loadedAt) < b.opts.MinReloadInterval:
		return domain.ErrReloadTooSoon
	}
	return nil
}

// Creative returns the creative of the last successful reload, or nil.
func (b *NetworkBanner) Creative() *domain.Creative {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creative
}

// Click reports a user tap on the current creative to the click callback.
func (b *NetworkBanner) Click() error {
	b.mu.Lock()
	if b.creative == nil {
		b.mu.Unlock()
		return domain.ErrNotLoaded
	}
	click := b.click
	b.mu.Unlock()

	if click != nil {
		click(b.bannerType)
	}
	return nil
}

// ReleaseIfStale drops the creative and its click callback when it was loaded
// at or before cutoff and the banner does not need retaining.
func (b *NetworkBanner) ReleaseIfStale(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.creative == nil || b.needToRetainLocked() || b.creative.LoadedAt.After(cutoff) {
		return false
	}
	b.creative = nil
	b.click = nil
	return true
}

// Reload fetches a new creative from the network.
func (b *NetworkBanner) Reload(ctx context.Context, success ports.SuccessFunc, failure ports.FailureFunc, click ports.ClickFunc) {
	reloadID := uuid.NewString()
	details := domain.ErrorDetails{
		"banner":    b.bannerType,
		"placement": b.opts.PlacementID,
		"reload_id": reloadID,
	}

	b.mu.Lock()
	if err := b.reloadBlockedLocked(); err != nil {
		b.mu.Unlock()
		go b.fail(failure, domain.EventBannerRejected, details, err)
		return
	}
	b.loading = true
	b.mu.Unlock()

	go b.load(ctx, reloadID, details, success, failure, click)
}

func (b *NetworkBanner) load(ctx context.Context, reloadID string, details domain.ErrorDetails,
	success ports.SuccessFunc, failure ports.FailureFunc, click ports.ClickFunc) {
	creative, err := b.client.FetchCreative(ctx, domain.AdRequest{
		ReloadID:    reloadID,
		PlacementID: b.opts.PlacementID,
		BannerType:  b.bannerType,
		Width:       b.opts.Width,
		Height:      b.opts.Height,
		BidFloor:    b.opts.BidFloor,
	})
	if err == nil && creative == nil {
		err = domain.ErrNoFill
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	b.mu.Lock()
	b.loading = false
	if err != nil {
		b.mu.Unlock()
		b.fail(failure, eventFor(err), details, err)
		return
	}

	loaded := *creative
	loaded.ReloadID = reloadID
	loaded.LoadedAt = b.now()
	b.creative = &loaded
	b.click = click
	b.loadedAt = loaded.LoadedAt
	b.mu.Unlock()

	if success != nil {
		success(b)
	}
}

func (b *NetworkBanner) fail(failure ports.FailureFunc, event domain.EventName, details domain.ErrorDetails, err error) {
	if failure == nil {
		return
	}
	failure(b.bannerType, event, details.Fill(err), err)
}

func eventFor(err error) domain.EventName {
	switch {
	case errors.Is(err, domain.ErrNoFill):
		return domain.EventBannerNoFill
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.EventBannerTimeout
	default:
		return domain.EventBannerError
	}
}
