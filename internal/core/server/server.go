package server

import (
	"context"
	"fmt"
	"time"

	"github.com/Melaeke/omim/internal/core/config"
	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/core/metrics"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"

	_ "github.com/Melaeke/omim/docs/swagger"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency probed by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the Fiber application and configuration.
type Server struct {
	// App is the main Fiber application instance.
	App *fiber.App
	// cfg holds the application configuration.
	cfg *config.AppConfig
	// checks are probed by GET /health.
	checks map[string]Pinger
}

// New creates a new Server instance with configured middleware.
// checks maps a dependency name to its probe; m may be nil to disable /metrics.
func New(cfg *config.AppConfig, m *metrics.Metrics, checks map[string]Pinger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "omim-ads",
	})

	app.Use(requestid.New(requestid.Config{
		Header: "X-Ray-ID",
	}))

	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logger.Get(),
	}))

	s := &Server{
		App:    app,
		cfg:    cfg,
		checks: checks,
	}

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/health", s.health)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	return s
}

// health godoc
// @Summary Health check
// @Description Pings every backing dependency
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := fiber.StatusOK
	result := fiber.Map{"status": "ok"}
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			logger.Get().Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			result[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}
	if status != fiber.StatusOK {
		result["status"] = "degraded"
	}

	return c.Status(status).JSON(result)
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.ServerPort)
	logger.Get().Info("Starting server", zap.String("address", addr))
	return s.App.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}
