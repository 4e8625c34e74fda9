package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/core/metrics"
	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"
	"github.com/Melaeke/omim/internal/features/statistics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPlacementNotFound is returned for placements that were never registered.
	ErrPlacementNotFound = errors.New("placement not found")
	// ErrBannerNotFound is returned when a placement has no banner of the requested type.
	ErrBannerNotFound = errors.New("banner not found in placement")
	// ErrNoBannerAvailable is returned when no banner of a placement produced a creative.
	ErrNoBannerAvailable = errors.New("no banner available")
)

// Options holds the reload policy of the service.
type Options struct {
	// ReloadTimeout bounds a single banner reload.
	ReloadTimeout time.Duration
	// CreativeTTL is how long a loaded creative may stay on a banner that does not need retaining.
	CreativeTTL time.Duration
	// PreloadConcurrency caps concurrent placement loads in Preload. 0 means no limit.
	PreloadConcurrency int
}

type slot struct {
	placement domain.Placement
	banners   []ports.LoadedBanner
}

// BannerServiceImpl implements ports.BannerService.
type BannerServiceImpl struct {
	stats   ports.StatsRepository
	tracker *statistics.Tracker
	metrics *metrics.Metrics
	opts    Options

	mu    sync.RWMutex
	slots map[string]*slot
	order []string
}

var _ ports.BannerService = (*BannerServiceImpl)(nil)

// NewBannerService creates a new BannerServiceImpl with no placements.
func NewBannerService(stats ports.StatsRepository, tracker *statistics.Tracker, m *metrics.Metrics, opts Options) *BannerServiceImpl {
	return &BannerServiceImpl{
		stats:   stats,
		tracker: tracker,
		metrics: m,
		opts:    opts,
		slots:   make(map[string]*slot),
	}
}

// AddPlacement registers a placement served by banners, tried in the given order on equal scores.
func (s *BannerServiceImpl) AddPlacement(p domain.Placement, banners ...ports.LoadedBanner) error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidPlacement)
	}
	if len(banners) == 0 {
		return fmt.Errorf("%w: %s has no banners", domain.ErrInvalidPlacement, p.ID)
	}

	seen := make(map[domain.BannerType]bool, len(banners))
	for _, b := range banners {
		if seen[b.Type()] {
			return fmt.Errorf("%w: %s has two %s banners", domain.ErrInvalidPlacement, p.ID, b.Type())
		}
		seen[b.Type()] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slots[p.ID]; exists {
		return fmt.Errorf("%w: duplicate placement %s", domain.ErrInvalidPlacement, p.ID)
	}
	s.slots[p.ID] = &slot{placement: p, banners: banners}
	s.order = append(s.order, p.ID)

	return nil
}

// Placements returns the registered placements in registration order.
func (s *BannerServiceImpl) Placements() []domain.Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	placements := make([]domain.Placement, 0, len(s.order))
	for _, id := range s.order {
		placements = append(placements, s.slots[id].placement)
	}
	return placements
}

func (s *BannerServiceImpl) slot(placementID string) (*slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.slots[placementID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlacementNotFound, placementID)
	}
	return sl, nil
}

func (s *BannerServiceImpl) banner(placementID string, bannerType domain.BannerType) (ports.LoadedBanner, error) {
	sl, err := s.slot(placementID)
	if err != nil {
		return nil, err
	}
	for _, b := range sl.banners {
		if b.Type() == bannerType {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrBannerNotFound, placementID, bannerType)
}

// Load reloads the best scoring banner of a placement, falling through to the
// next one on failure. When no banner can reload, a creative still held by one
// of the banners is served instead.
func (s *BannerServiceImpl) Load(ctx context.Context, placementID string) (*domain.LoadResult, error) {
	sl, err := s.slot(placementID)
	if err != nil {
		return nil, err
	}
	log := logger.Get().With(zap.String("placement", placementID))

	var candidates []ports.LoadedBanner
	for _, b := range sl.banners {
		if b.IsPossibleToReload() {
			candidates = append(candidates, b)
		}
	}

	if len(candidates) > 1 {
		stats, err := s.stats.GetStats(ctx, placementID)
		if err != nil {
			log.Warn("Failed to read rotation stats, using configured order", zap.Error(err))
		}
		candidates = rankByUCB(candidates, stats)
	}

	var lastErr error
	for _, b := range candidates {
		if err := s.reload(ctx, placementID, b); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		creative := b.Creative()
		if creative == nil {
			lastErr = domain.ErrNotLoaded
			continue
		}
		s.recordShow(context.WithoutCancel(ctx), placementID, b.Type(), creative.ReloadID)
		return &domain.LoadResult{
			PlacementID: placementID,
			BannerType:  b.Type(),
			Creative:    creative,
		}, nil
	}

	if result := s.fromLoaded(ctx, sl); result != nil {
		log.Debug("Serving already loaded creative", zap.String("banner_type", string(result.BannerType)))
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrNoBannerAvailable, placementID, lastErr)
	}
	return nil, fmt.Errorf("%w for %s: no banner can reload", ErrNoBannerAvailable, placementID)
}

// reload runs one banner reload and waits for its outcome. An outcome that is
// already reported wins over an expired deadline.
func (s *BannerServiceImpl) reload(ctx context.Context, placementID string, b ports.LoadedBanner) error {
	if s.opts.ReloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ReloadTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan error, 1)

	b.Reload(ctx,
		func(banner ports.Banner) {
			s.onSuccess(banner, start)
			done <- nil
		},
		func(bannerType domain.BannerType, event domain.EventName, details domain.ErrorDetails, err error) {
			s.onFailure(ctx, placementID, bannerType, event, details, err, start)
			done <- err
		},
		func(bannerType domain.BannerType) {
			s.onClick(placementID, bannerType)
		},
	)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
			return ctx.Err()
		}
	}
}

// onSuccess only updates metrics; the show is recorded once Load serves the creative.
func (s *BannerServiceImpl) onSuccess(banner ports.Banner, start time.Time) {
	bannerType := banner.Type()
	s.metrics.ReloadDuration.WithLabelValues(string(bannerType)).Observe(time.Since(start).Seconds())
	s.metrics.ReloadTotal.WithLabelValues(string(bannerType), metrics.OutcomeSuccess, string(domain.EventBannerShow)).Inc()
}

func (s *BannerServiceImpl) recordShow(ctx context.Context, placementID string, bannerType domain.BannerType, reloadID string) {
	if err := s.stats.RecordShow(ctx, placementID, bannerType); err != nil {
		logger.Get().Warn("Failed to record show",
			zap.String("placement", placementID),
			zap.String("banner_type", string(bannerType)),
			zap.Error(err),
		)
	}
	s.tracker.TrackBannerShow(ctx, placementID, bannerType, reloadID)
}

func (s *BannerServiceImpl) onFailure(ctx context.Context, placementID string, bannerType domain.BannerType,
	event domain.EventName, details domain.ErrorDetails, err error, start time.Time) {
	s.metrics.ReloadDuration.WithLabelValues(string(bannerType)).Observe(time.Since(start).Seconds())
	s.metrics.ReloadTotal.WithLabelValues(string(bannerType), metrics.OutcomeFailure, string(event)).Inc()

	logger.Get().Warn("Banner reload failed",
		zap.String("placement", placementID),
		zap.String("banner_type", string(bannerType)),
		zap.String("event", string(event)),
		zap.Any("details", details),
		zap.Error(err),
	)

	s.tracker.TrackBannerError(context.WithoutCancel(ctx), placementID, bannerType, event, details, err)
}

func (s *BannerServiceImpl) onClick(placementID string, bannerType domain.BannerType) {
	ctx := context.Background()
	s.metrics.ClicksTotal.WithLabelValues(string(bannerType)).Inc()

	if err := s.stats.RecordClick(ctx, placementID, bannerType); err != nil {
		logger.Get().Warn("Failed to record click",
			zap.String("placement", placementID),
			zap.String("banner_type", string(bannerType)),
			zap.Error(err),
		)
	}
	s.tracker.TrackBannerClick(ctx, placementID, bannerType)
}

// fromLoaded serves the most recently loaded creative of the placement, if any.
func (s *BannerServiceImpl) fromLoaded(ctx context.Context, sl *slot) *domain.LoadResult {
	var (
		best     ports.LoadedBanner
		creative *domain.Creative
	)
	for _, b := range sl.banners {
		c := b.Creative()
		if c == nil {
			continue
		}
		if creative == nil || c.LoadedAt.After(creative.LoadedAt) {
			best, creative = b, c
		}
	}
	if best == nil {
		return nil
	}

	s.recordShow(context.WithoutCancel(ctx), sl.placement.ID, best.Type(), creative.ReloadID)
	return &domain.LoadResult{
		PlacementID: sl.placement.ID,
		BannerType:  best.Type(),
		Creative:    creative,
		Cached:      true,
	}
}

// Click forwards a user click to the banner's current creative.
func (s *BannerServiceImpl) Click(ctx context.Context, placementID string, bannerType domain.BannerType) error {
	b, err := s.banner(placementID, bannerType)
	if err != nil {
		return err
	}
	return b.Click()
}

// SetOnScreen records whether the client currently displays the banner.
func (s *BannerServiceImpl) SetOnScreen(placementID string, bannerType domain.BannerType, onScreen bool) error {
	b, err := s.banner(placementID, bannerType)
	if err != nil {
		return err
	}
	b.SetBannerOnScreen(onScreen)
	return nil
}

// State returns a snapshot of every banner of the placement.
func (s *BannerServiceImpl) State(placementID string) ([]domain.BannerState, error) {
	sl, err := s.slot(placementID)
	if err != nil {
		return nil, err
	}

	states := make([]domain.BannerState, 0, len(sl.banners))
	for _, b := range sl.banners {
		states = append(states, domain.BannerState{
			BannerType:         b.Type(),
			IsBannerOnScreen:   b.IsBannerOnScreen(),
			IsNeedToRetain:     b.IsNeedToRetain(),
			IsPossibleToReload: b.IsPossibleToReload(),
			Loaded:             b.Creative() != nil,
		})
	}
	return states, nil
}

// Stats returns the rotation counters of the placement.
func (s *BannerServiceImpl) Stats(ctx context.Context, placementID string) ([]domain.BannerStat, error) {
	if _, err := s.slot(placementID); err != nil {
		return nil, err
	}

	stats, err := s.stats.GetStats(ctx, placementID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get stats: %w", err)
	}
	return stats, nil
}

// Preload loads every placement concurrently. Placements without fill are only logged.
func (s *BannerServiceImpl) Preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if s.opts.PreloadConcurrency > 0 {
		g.SetLimit(s.opts.PreloadConcurrency)
	}

	for _, p := range s.Placements() {
		p := p
		g.Go(func() error {
			result, err := s.Load(gctx, p.ID)
			if err != nil {
				if errors.Is(err, ErrNoBannerAvailable) && gctx.Err() == nil {
					logger.Get().Warn("Preload found no fill", zap.String("placement", p.ID), zap.Error(err))
					return nil
				}
				return fmt.Errorf("preload %s: %w", p.ID, err)
			}

			logger.Get().Info("Placement preloaded",
				zap.String("placement", p.ID),
				zap.String("banner_type", string(result.BannerType)),
			)
			return nil
		})
	}

	return g.Wait()
}

// Sweep releases creatives older than the creative TTL from banners that do not need retaining.
// It returns the number of released creatives.
func (s *BannerServiceImpl) Sweep(now time.Time) int {
	if s.opts.CreativeTTL <= 0 {
		return 0
	}

	s.mu.RLock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	cutoff := now.Add(-s.opts.CreativeTTL)
	released := 0
	for _, sl := range slots {
		for _, b := range sl.banners {
			if b.ReleaseIfStale(cutoff) {
				released++
			}
		}
	}

	if released > 0 {
		logger.Get().Debug("Released stale creatives", zap.Int("count", released))
	}
	return released
}

// Run sweeps on every tick until ctx is done.
func (s *BannerServiceImpl) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
