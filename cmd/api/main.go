package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Melaeke/omim/internal/core/cache"
	"github.com/Melaeke/omim/internal/core/config"
	"github.com/Melaeke/omim/internal/core/events"
	"github.com/Melaeke/omim/internal/core/httpclient"
	"github.com/Melaeke/omim/internal/core/logger"
	"github.com/Melaeke/omim/internal/core/metrics"
	"github.com/Melaeke/omim/internal/core/server"
	"github.com/Melaeke/omim/internal/features/banners/adapters"
	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/handler"
	"github.com/Melaeke/omim/internal/features/banners/ports"
	"github.com/Melaeke/omim/internal/features/banners/service"
	"github.com/Melaeke/omim/internal/features/statistics"
	statshandler "github.com/Melaeke/omim/internal/features/statistics/handler"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// @title Omim Ads API
// @version 1.0
// @description Serves advertising banners for map placements, rotating between ad networks.
// @contact.name API Support
// @license.name Apache 2.0
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("stats_backend", cfg.Stats.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	placements, err := domain.ParsePlacements(cfg.Ads.Placements)
	if err != nil {
		l.Fatal("Invalid placements", zap.Error(err))
	}

	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		l.Fatal("Redis health check failed", zap.Error(err))
	}
	cancelPing()
	l.Info("Redis connection verified")

	checks := map[string]server.Pinger{"redis": redisCache}

	var stats ports.StatsRepository
	switch cfg.Stats.Backend {
	case config.StatsBackendPostgres:
		pg, err := adapters.NewPostgresStatsRepository(ctx, cfg.Stats.DatabaseURL)
		if err != nil {
			l.Fatal("Failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		stats = pg
		checks["postgres"] = pg
	default:
		stats = adapters.NewRedisStatsRepository(redisCache)
	}

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.Kafka.Brokers != "" {
		publisher = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		l.Info("Analytics events go to kafka", zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	tracker := statistics.NewTracker(publisher, cfg.Stats.Enabled)
	m := metrics.New()

	httpClient := httpclient.NewClient(cfg.Ads.ReloadTimeout, cfg.Proxy)
	clients := adapters.NewNetworkClients(map[domain.BannerType]string{
		domain.BannerTypeFacebook: cfg.Networks.FacebookURL,
		domain.BannerTypeRB:       cfg.Networks.RBURL,
		domain.BannerTypeMopub:    cfg.Networks.MopubURL,
		domain.BannerTypeGoogle:   cfg.Networks.GoogleURL,
	}, cfg.Networks.AppBundle, httpClient)

	if cfg.Ads.CacheCreatives {
		repo := adapters.NewRedisCreativeRepository(redisCache, cfg.Ads.CreativeTTL)
		for i, c := range clients {
			clients[i] = adapters.NewCachedNetworkClient(c, repo)
		}
	}

	bannerSvc := service.NewBannerService(stats, tracker, m, service.Options{
		ReloadTimeout:      cfg.Ads.ReloadTimeout,
		CreativeTTL:        cfg.Ads.CreativeTTL,
		PreloadConcurrency: cfg.Ads.PreloadConcurrency,
	})

	retain := cfg.Ads.RetainSet()
	for _, p := range placements {
		var banners []ports.LoadedBanner
		for _, bannerType := range p.BannerTypes {
			client := adapters.ClientFor(clients, bannerType)
			if client == nil {
				l.Warn("No endpoint configured for network, skipping",
					zap.String("placement", p.ID),
					zap.String("banner_type", string(bannerType)),
				)
				continue
			}

			banner, err := adapters.NewNetworkBanner(bannerType, client, adapters.BannerOptions{
				PlacementID:       p.ID,
				Width:             p.Width,
				Height:            p.Height,
				BidFloor:          cfg.Ads.BidFloor,
				MinReloadInterval: cfg.Ads.MinReloadInterval,
				Retain:            retain[string(bannerType)],
			})
			if err != nil {
				l.Fatal("Failed to create banner", zap.String("placement", p.ID), zap.Error(err))
			}
			banners = append(banners, banner)
		}

		if len(banners) == 0 {
			l.Warn("Placement has no usable networks", zap.String("placement", p.ID))
			continue
		}
		if err := bannerSvc.AddPlacement(p, banners...); err != nil {
			l.Fatal("Failed to register placement", zap.Error(err))
		}
	}

	bannerHdl := handler.NewBannerHandler(bannerSvc)

	srv := server.New(cfg, m, checks)
	bannerHdl.RegisterRoutes(srv.App)
	statshandler.NewStatisticsHandler(tracker).RegisterRoutes(srv.App)

	go bannerSvc.Run(ctx, cfg.Ads.SweepInterval)
	go func() {
		if err := bannerSvc.Preload(ctx); err != nil {
			l.Warn("Preload interrupted", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			l.Fatal("Server failed to start", zap.Error(err))
		}
	case <-ctx.Done():
		l.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		l.Error("Server shutdown failed", zap.Error(err))
	}
}
