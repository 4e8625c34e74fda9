package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BannerType identifies the ad network a banner is served from.
type BannerType string

const (
	BannerTypeNone     BannerType = "none"
	BannerTypeFacebook BannerType = "facebook"
	BannerTypeRB       BannerType = "rb"
	BannerTypeMopub    BannerType = "mopub"
	BannerTypeGoogle   BannerType = "google"
)

var (
	ErrInvalidBannerType = errors.New("invalid banner type")
	ErrNoFill            = errors.New("network returned no creative")
)

// ParseBannerType validates s against the known networks.
func ParseBannerType(s string) (BannerType, error) {
	switch t := BannerType(strings.ToLower(strings.TrimSpace(s))); t {
	case BannerTypeFacebook, BannerTypeRB, BannerTypeMopub, BannerTypeGoogle:
		return t, nil
	default:
		return BannerTypeNone, fmt.Errorf("%w: %q", ErrInvalidBannerType, s)
	}
}

// EventName names an analytics or lifecycle event.
type EventName string

const (
	EventBannerShow     EventName = "Banner_Show"
	EventBannerClick    EventName = "Banner_Click"
	EventBannerError    EventName = "Banner_Error"
	EventBannerNoFill   EventName = "Banner_NoFill"
	EventBannerTimeout  EventName = "Banner_Timeout"
	EventBannerRejected EventName = "Banner_Rejected"
)

// ErrorDetails is unstructured metadata accompanying a failure.
type ErrorDetails map[string]any

// Creative is the content delivered by a network for one reload.
type Creative struct {
	// ID is the network-side creative or bid identifier.
	ID string `json:"id"`
	// ReloadID identifies the reload that fetched the creative.
	ReloadID string `json:"reload_id"`
	// Markup is the HTML/JSON payload to render.
	Markup string `json:"markup"`
	// ClickURL is where the client navigates on tap.
	ClickURL string `json:"click_url,omitempty"`
	// WinNoticeURL is fired by exchanges on impression.
	WinNoticeURL string  `json:"win_notice_url,omitempty"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Price        float64 `json:"price,omitempty"`
	// LoadedAt is set by the banner once the reload completes.
	LoadedAt time.Time `json:"loaded_at"`
}

// AdRequest is what a banner asks its network for.
type AdRequest struct {
	ReloadID    string
	PlacementID string
	BannerType  BannerType
	Width       int
	Height      int
	BidFloor    float64
}

// LoadResult is the outcome of a successful placement load.
type LoadResult struct {
	PlacementID string     `json:"placement_id"`
	BannerType  BannerType `json:"banner_type"`
	Creative    *Creative  `json:"creative"`
	// Cached is true when no banner could reload and a retained creative was served.
	Cached bool `json:"cached"`
}

// BannerState is a snapshot of a banner's properties.
type BannerState struct {
	BannerType         BannerType `json:"banner_type"`
	IsBannerOnScreen   bool       `json:"is_banner_on_screen"`
	IsNeedToRetain     bool       `json:"is_need_to_retain"`
	IsPossibleToReload bool       `json:"is_possible_to_reload"`
	Loaded             bool       `json:"loaded"`
}

// BannerStat holds rotation counters for one banner type of a placement.
type BannerStat struct {
	BannerType BannerType `json:"banner_type"`
	Shows      int        `json:"shows"`
	Clicks     int        `json:"clicks"`
}
