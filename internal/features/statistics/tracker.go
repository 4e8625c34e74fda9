// Package statistics posts analytics events for banner lifecycle outcomes.
// Nothing is posted while statistics are disabled.
package statistics

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/Melaeke/omim/internal/core/events"
	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/features/banners/domain"

	"go.uber.org/zap"
)

// Tracker is the analytics sink of the banner service.
type Tracker struct {
	publisher events.Publisher
	enabled   atomic.Bool
}

// NewTracker creates a Tracker posting to publisher.
func NewTracker(publisher events.Publisher, enabled bool) *Tracker {
	t := &Tracker{publisher: publisher}
	t.enabled.Store(enabled)
	return t
}

// EventStatusChanged is posted whenever statistics are switched on or off.
const EventStatusChanged = "Statistics status changed"

// SetEnabled switches statistics on or off. The change is posted in both directions.
func (t *Tracker) SetEnabled(ctx context.Context, enabled bool) {
	t.enabled.Store(enabled)

	event := NewEventBuilder().
		SetName(EventStatusChanged).
		AddParam("Enabled", enabled).
		Event()
	if err := t.publisher.Publish(ctx, event); err != nil {
		logger.Get().Warn("Failed to publish analytics event",
			zap.String("name", event.Name),
			zap.Error(err),
		)
	}
}

func (t *Tracker) IsEnabled() bool {
	return t.enabled.Load()
}

// Track posts event if statistics are enabled. Delivery errors are logged, not returned.
func (t *Tracker) Track(ctx context.Context, event events.Event) {
	if !t.IsEnabled() {
		return
	}

	if err := t.publisher.Publish(ctx, event); err != nil {
		logger.Get().Warn("Failed to publish analytics event",
			zap.String("name", event.Name),
			zap.Error(err),
		)
	}
}

// TrackBannerError records a failed reload.
func (t *Tracker) TrackBannerError(ctx context.Context, placementID string, bannerType domain.BannerType, name domain.EventName, details domain.ErrorDetails, err error) {
	b := NewEventBuilder().
		SetName(string(name)).
		SetKey(string(bannerType)).
		AddParam("placement", placementID).
		AddParam("banner", bannerType)

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.AddParam(k, details[k])
	}
	if err != nil {
		b.AddParam("error", err.Error())
	}

	t.Track(ctx, b.Event())
}

// TrackBannerShow records a creative served to a placement.
func (t *Tracker) TrackBannerShow(ctx context.Context, placementID string, bannerType domain.BannerType, reloadID string) {
	t.Track(ctx, NewEventBuilder().
		SetName(string(domain.EventBannerShow)).
		SetKey(string(bannerType)).
		AddParam("placement", placementID).
		AddParam("banner", bannerType).
		AddParam("reload_id", reloadID).
		Event())
}

// TrackBannerClick records a user click.
func (t *Tracker) TrackBannerClick(ctx context.Context, placementID string, bannerType domain.BannerType) {
	t.Track(ctx, NewEventBuilder().
		SetName(string(domain.EventBannerClick)).
		SetKey(string(bannerType)).
		AddParam("placement", placementID).
		AddParam("banner", bannerType).
		Event())
}
