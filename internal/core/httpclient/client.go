package httpclient

import (
	"net/http"
	"time"

	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/core/proxy"

	"go.uber.org/zap"
)

// UserAgent is sent to ad networks on every request.
const UserAgent = "omim-ads/1.0"

// LoggingRoundTripper logs every network round trip and stamps the user agent.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := logger.Get()

	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}

	log.Debug("Network request started",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		log.Warn("Network request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	log.Debug("Network request completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware, routed through p when configured.
func NewClient(timeout time.Duration, p proxy.Settings) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = p.Func()

	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: transport,
		},
		Timeout: timeout,
	}
}
