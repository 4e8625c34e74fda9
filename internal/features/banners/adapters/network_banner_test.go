package adapters

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNetworkClient is a mock implementation of ports.NetworkClient
type MockNetworkClient struct {
	mock.Mock
}

func (m *MockNetworkClient) FetchCreative(ctx context.Context, req domain.AdRequest) (*domain.Creative, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Creative), args.Error(1)
}

func (m *MockNetworkClient) SupportsBannerType(bannerType domain.BannerType) bool {
	args := m.Called(bannerType)
	return args.Bool(0)
}

type failure struct {
	bannerType domain.BannerType
	event      domain.EventName
	details    domain.ErrorDetails
	err        error
}

// reloadOutcome runs Reload and waits for its single callback.
func reloadOutcome(t *testing.T, b *NetworkBanner, click ports.ClickFunc) (ports.Banner, *failure) {
	t.Helper()

	successCh := make(chan ports.Banner, 1)
	failureCh := make(chan failure, 1)
	b.Reload(context.Background(),
		func(banner ports.Banner) { successCh <- banner },
		func(bt domain.BannerType, event domain.EventName, details domain.ErrorDetails, err error) {
			failureCh <- failure{bt, event, details, err}
		},
		click,
	)

	select {
	case banner := <-successCh:
		return banner, nil
	case f := <-failureCh:
		return nil, &f
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback was never called")
		return nil, nil
	}
}

func newTestBanner(t *testing.T, client *MockNetworkClient, opts BannerOptions) *NetworkBanner {
	t.Helper()
	client.On("SupportsBannerType", domain.BannerTypeMopub).Return(true).Once()
	b, err := NewNetworkBanner(domain.BannerTypeMopub, client, opts)
	require.NoError(t, err)
	return b
}

func TestNewNetworkBanner(t *testing.T) {
	t.Run("None", func(t *testing.T) {
		_, err := NewNetworkBanner(domain.BannerTypeNone, new(MockNetworkClient), BannerOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidBannerType)
	})

	t.Run("Unsupported", func(t *testing.T) {
		client := new(MockNetworkClient)
		client.On("SupportsBannerType", domain.BannerTypeGoogle).Return(false).Once()

		_, err := NewNetworkBanner(domain.BannerTypeGoogle, client, BannerOptions{})
		assert.ErrorIs(t, err, domain.ErrUnsupportedNetwork)
		client.AssertExpectations(t)
	})

	t.Run("InitialState", func(t *testing.T) {
		b := newTestBanner(t, new(MockNetworkClient), BannerOptions{})
		assert.Equal(t, domain.BannerTypeMopub, b.Type())
		assert.False(t, b.IsBannerOnScreen())
		assert.False(t, b.IsNeedToRetain())
		assert.True(t, b.IsPossibleToReload())
		assert.Nil(t, b.Creative())
	})
}

func TestNetworkBanner_ReloadSuccess(t *testing.T) {
	client := new(MockNetworkClient)
	b := newTestBanner(t, client, BannerOptions{PlacementID: "placepage", Width: 320, Height: 50, BidFloor: 0.5})

	client.On("FetchCreative", mock.Anything, mock.MatchedBy(func(req domain.AdRequest) bool {
		return req.PlacementID == "placepage" && req.Width == 320 && req.Height == 50 &&
			req.BidFloor == 0.5 && req.BannerType == domain.BannerTypeMopub && req.ReloadID != ""
	})).Return(&domain.Creative{ID: "cr-1", Markup: "<div/>"}, nil).Once()

	clicks := make(chan domain.BannerType, 2)
	banner, f := reloadOutcome(t, b, func(bt domain.BannerType) { clicks <- bt })
	require.Nil(t, f)
	assert.Same(t, b, banner)

	creative := b.Creative()
	require.NotNil(t, creative)
	assert.Equal(t, "cr-1", creative.ID)
	assert.NotEmpty(t, creative.ReloadID)
	assert.False(t, creative.LoadedAt.IsZero())

	require.NoError(t, b.Click())
	require.NoError(t, b.Click())
	assert.Equal(t, domain.BannerTypeMopub, <-clicks)
	assert.Equal(t, domain.BannerTypeMopub, <-clicks)

	client.AssertExpectations(t)
}

func TestNetworkBanner_ReloadFailure(t *testing.T) {
	tests := []struct {
		name      string
		creative  *domain.Creative
		err       error
		wantEvent domain.EventName
	}{
		{"NoFill", nil, domain.ErrNoFill, domain.EventBannerNoFill},
		{"NilCreative", nil, nil, domain.EventBannerNoFill},
		{"Timeout", nil, context.DeadlineExceeded, domain.EventBannerTimeout},
		{"NetworkError", nil, &domain.NetworkError{BannerType: domain.BannerTypeMopub, Code: "E42", HTTPStatus: http.StatusBadGateway, Err: errors.New("bad gateway")}, domain.EventBannerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockNetworkClient)
			b := newTestBanner(t, client, BannerOptions{PlacementID: "search"})

			if tt.creative == nil && tt.err == nil {
				client.On("FetchCreative", mock.Anything, mock.Anything).Return(nil, nil).Once()
			} else {
				client.On("FetchCreative", mock.Anything, mock.Anything).Return(tt.creative, tt.err).Once()
			}

			banner, f := reloadOutcome(t, b, nil)
			assert.Nil(t, banner)
			require.NotNil(t, f)
			assert.Equal(t, domain.BannerTypeMopub, f.bannerType)
			assert.Equal(t, tt.wantEvent, f.event)
			assert.Equal(t, "search", f.details["placement"])
			assert.NotEmpty(t, f.details["reload_id"])
			assert.NotEmpty(t, f.details["error_message"])
			assert.Nil(t, b.Creative())
			assert.True(t, b.IsPossibleToReload())
		})
	}
}

func TestNetworkBanner_NetworkErrorDetails(t *testing.T) {
	client := new(MockNetworkClient)
	b := newTestBanner(t, client, BannerOptions{})

	netErr := &domain.NetworkError{BannerType: domain.BannerTypeMopub, Code: "E42", HTTPStatus: http.StatusBadGateway, Err: errors.New("bad gateway")}
	client.On("FetchCreative", mock.Anything, mock.Anything).Return(nil, netErr).Once()

	_, f := reloadOutcome(t, b, nil)
	require.NotNil(t, f)
	assert.Equal(t, "E42", f.details["error_code"])
	assert.Equal(t, http.StatusBadGateway, f.details["http_status"])
	assert.ErrorIs(t, f.err, netErr.Err)
}

func TestNetworkBanner_ReloadRejected(t *testing.T) {
	t.Run("OnScreen", func(t *testing.T) {
		client := new(MockNetworkClient)
		b := newTestBanner(t, client, BannerOptions{})
		b.SetBannerOnScreen(true)

		assert.False(t, b.IsPossibleToReload())
		_, f := reloadOutcome(t, b, nil)
		require.NotNil(t, f)
		assert.Equal(t, domain.EventBannerRejected, f.event)
		assert.ErrorIs(t, f.err, domain.ErrBannerOnScreen)
		client.AssertNotCalled(t, "FetchCreative", mock.Anything, mock.Anything)
	})

	t.Run("TooSoon", func(t *testing.T) {
		client := new(MockNetworkClient)
		b := newTestBanner(t, client, BannerOptions{MinReloadInterval: time.Minute})
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		b.now = func() time.Time { return now }

		client.On("FetchCreative", mock.Anything, mock.Anything).Return(&domain.Creative{ID: "cr-1"}, nil).Once()
		_, f := reloadOutcome(t, b, nil)
		require.Nil(t, f)

		assert.False(t, b.IsPossibleToReload())
		_, f = reloadOutcome(t, b, nil)
		require.NotNil(t, f)
		assert.ErrorIs(t, f.err, domain.ErrReloadTooSoon)

		now = now.Add(time.Minute)
		assert.True(t, b.IsPossibleToReload())
		client.AssertExpectations(t)
	})

	t.Run("InProgress", func(t *testing.T) {
		client := new(MockNetworkClient)
		b := newTestBanner(t, client, BannerOptions{})

		release := make(chan time.Time)
		client.On("FetchCreative", mock.Anything, mock.Anything).
			WaitUntil(release).
			Return(&domain.Creative{ID: "cr-1"}, nil).Once()

		done := make(chan struct{})
		b.Reload(context.Background(), func(ports.Banner) { close(done) }, nil, nil)

		assert.True(t, b.IsNeedToRetain())
		assert.False(t, b.IsPossibleToReload())
		_, f := reloadOutcome(t, b, nil)
		require.NotNil(t, f)
		assert.ErrorIs(t, f.err, domain.ErrReloadInProgress)

		close(release)
		<-done
		assert.True(t, b.IsPossibleToReload())
	})
}

func TestNetworkBanner_FailedReloadKeepsCreative(t *testing.T) {
	client := new(MockNetworkClient)
	b := newTestBanner(t, client, BannerOptions{})

	client.On("FetchCreative", mock.Anything, mock.Anything).Return(&domain.Creative{ID: "cr-1"}, nil).Once()
	_, f := reloadOutcome(t, b, nil)
	require.Nil(t, f)

	client.On("FetchCreative", mock.Anything, mock.Anything).Return(nil, domain.ErrNoFill).Once()
	_, f = reloadOutcome(t, b, nil)
	require.NotNil(t, f)

	require.NotNil(t, b.Creative())
	assert.Equal(t, "cr-1", b.Creative().ID)
}

func TestNetworkBanner_Retain(t *testing.T) {
	client := new(MockNetworkClient)
	b := newTestBanner(t, client, BannerOptions{})

	client.On("FetchCreative", mock.Anything, mock.Anything).Return(&domain.Creative{ID: "cr-1"}, nil).Once()
	_, f := reloadOutcome(t, b, nil)
	require.Nil(t, f)

	assert.False(t, b.IsNeedToRetain())
	b.SetBannerOnScreen(true)
	assert.True(t, b.IsNeedToRetain())
	b.SetBannerOnScreen(false)

	b.opts.Retain = true
	assert.True(t, b.IsNeedToRetain())
	assert.False(t, b.ReleaseIfStale(time.Now().Add(time.Hour)))
	assert.NotNil(t, b.Creative())
}

func TestNetworkBanner_ReleaseIfStale(t *testing.T) {
	client := new(MockNetworkClient)
	b := newTestBanner(t, client, BannerOptions{})
	loadedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return loadedAt }

	assert.False(t, b.ReleaseIfStale(loadedAt), "nothing loaded")

	client.On("FetchCreative", mock.Anything, mock.Anything).Return(&domain.Creative{ID: "cr-1"}, nil).Once()
	_, f := reloadOutcome(t, b, nil)
	require.Nil(t, f)

	assert.False(t, b.ReleaseIfStale(loadedAt.Add(-time.Second)), "fresh creative")

	b.SetBannerOnScreen(true)
	assert.False(t, b.ReleaseIfStale(loadedAt.Add(time.Hour)), "on-screen creative")
	b.SetBannerOnScreen(false)

	// A reload in flight keeps the previous creative.
	release := make(chan time.Time)
	client.On("FetchCreative", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(&domain.Creative{ID: "cr-2"}, nil).Once()
	done := make(chan struct{})
	b.Reload(context.Background(), func(ports.Banner) { close(done) }, nil, nil)
	assert.False(t, b.ReleaseIfStale(loadedAt.Add(time.Hour)), "reload in flight")
	close(release)
	<-done

	assert.False(t, b.ReleaseIfStale(loadedAt.Add(-time.Second)), "reloaded creative is fresh")
	assert.True(t, b.ReleaseIfStale(loadedAt))
	assert.Nil(t, b.Creative())
	assert.ErrorIs(t, b.Click(), domain.ErrNotLoaded)
	assert.False(t, b.ReleaseIfStale(loadedAt.Add(time.Hour)))
}

func TestNetworkBanner_NilCallbacks(t *testing.T) {
	client := new(MockNetworkClient)
	b := newTestBanner(t, client, BannerOptions{})

	fetched := make(chan struct{})
	client.On("FetchCreative", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(fetched) }).
		Return(nil, domain.ErrNoFill).Once()

	assert.NotPanics(t, func() {
		b.Reload(context.Background(), nil, nil, nil)
		<-fetched
	})
	assert.Eventually(t, b.IsPossibleToReload, time.Second, 10*time.Millisecond)
}
