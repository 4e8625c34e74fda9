package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Melaeke/omim/internal/core/config"
	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/core/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// TestNew verifies that New creates a Server with the correct configuration.
func TestNew(t *testing.T) {
	cfg := &config.AppConfig{
		ServerPort: 8080,
	}

	logger.Init("development", "debug")
	srv := New(cfg, nil, nil)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.App)
	assert.Equal(t, cfg, srv.cfg)
}

func TestServer_Health(t *testing.T) {
	logger.Init("development", "error")

	t.Run("Healthy", func(t *testing.T) {
		srv := New(&config.AppConfig{}, nil, map[string]Pinger{
			"redis": pingFunc(func(context.Context) error { return nil }),
		})

		resp, err := srv.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Ray-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, map[string]string{"status": "ok", "redis": "ok"}, body)
	})

	t.Run("Degraded", func(t *testing.T) {
		srv := New(&config.AppConfig{}, nil, map[string]Pinger{
			"redis":    pingFunc(func(context.Context) error { return nil }),
			"postgres": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})

		resp, err := srv.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "connection refused", body["postgres"])
	})
}

func TestServer_Metrics(t *testing.T) {
	logger.Init("development", "error")
	m := metrics.New()
	m.ClicksTotal.WithLabelValues("mopub").Inc()

	srv := New(&config.AppConfig{}, m, nil)

	resp, err := srv.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ads_clicks_total{banner_type="mopub"} 1`)
}

// TestServer_Run_Error verifies that Run returns an error when binding fails (e.g., privileged port).
func TestServer_Run_Error(t *testing.T) {
	// Privileged port 1 should fail
	cfg := &config.AppConfig{
		ServerPort: 1,
	}
	logger.Init("development", "error")

	srv := New(cfg, nil, nil)

	errCh := make(chan error)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(1 * time.Second):
		srv.Shutdown(context.Background())
		t.Log("Server unexpectedly started or timed out on Error test")
	}
}
