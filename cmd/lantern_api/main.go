// Package main Lantern API
// @title Lantern API
// @version 1.0
// @description Newsroom publishing pipeline: staff login, article publishing, public feed and view analytics
// @contact.name Newsroom Engineering
// @contact.email engineering@lantern.news
// @license.name Apache 2.0
// @license.url https://opensource.org/licenses/Apache-2.0
// @BasePath /
package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/DjordjeVuckovic/lantern/docs"
	"github.com/DjordjeVuckovic/lantern/internal/api/router"
	server2 "github.com/DjordjeVuckovic/lantern/internal/api/server"
	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/DjordjeVuckovic/lantern/internal/media"
	"github.com/DjordjeVuckovic/lantern/internal/metrics"
	"github.com/DjordjeVuckovic/lantern/internal/publishing"
	"github.com/DjordjeVuckovic/lantern/internal/storage/es"
	"github.com/DjordjeVuckovic/lantern/internal/storage/factory"
	"github.com/DjordjeVuckovic/lantern/pkg/middleware"
	pkgserver "github.com/DjordjeVuckovic/lantern/pkg/server"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const mediaPrefix = "/media/"

func main() {
	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))

	sCfg, err := server2.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(sCfg, cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(sCfg *server2.Config, cfg *LanternConfig) error {
	collector := metrics.New()

	// Backing services are opened before the server so they back /health.
	backend, err := factory.NewBackend(context.Background(), &cfg.StorageConfig)
	if err != nil {
		return err
	}
	defer backend.Close()

	health := []pkgserver.HealthChecker{backend.Health}
	gatewayOpts := []auth.Option{auth.WithMetrics(collector)}
	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		gatewayOpts = append(gatewayOpts, auth.WithLimiters(
			auth.NewRedisLimiter(client, "lantern:login", cfg.Auth.LoginLimit),
			auth.NewRedisLimiter(client, "lantern:action", cfg.Auth.ActionLimit),
		))
		health = append(health, pkgserver.HealthCheckFunc(func(ctx context.Context) bool {
			return client.Ping(ctx).Err() == nil
		}))
		slog.Info("Rate limits shared through Redis")
	}

	s := server2.New(sCfg, pkgserver.AllHealthy(health...)).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupOpenApi("/swagger/*").
		SetupMetrics("/metrics", collector.Handler())

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "Lantern API is running")
	})

	directory, err := auth.LoadDirectoryFile(cfg.StaffFile)
	if err != nil {
		return err
	}
	slog.Info("Staff directory loaded", "accounts", directory.Len())

	gateway, err := auth.NewGateway(cfg.Auth, directory, backend.Store, gatewayOpts...)
	if err != nil {
		return err
	}

	ingester, err := media.NewIngester(cfg.Media)
	if err != nil {
		return err
	}
	thumbnailer, err := media.NewThumbnailer(cfg.Media.Dir, cfg.ThumbDir, cfg.ThumbWidth)
	if err != nil {
		return err
	}

	opts := []publishing.Option{
		publishing.WithEnhancer(thumbnailer),
		publishing.WithMetrics(collector),
	}
	if cfg.StorageConfig.Es != nil {
		indexer, err := es.NewIndexer(s.Context(), *cfg.StorageConfig.Es)
		if err != nil {
			// The index is a mirror; publishing works without it.
			slog.Warn("Search indexing disabled", "error", err)
		} else {
			opts = append(opts, publishing.WithIndexer(indexer))
			slog.Info("Search indexing enabled", "index", cfg.StorageConfig.Es.IndexName)
		}
	}

	pipeline := publishing.NewPipeline(publishing.DefaultConfig(), gateway, backend.Store, ingester, opts...)

	viewLimiter := middleware.NewRateLimiter(rate.Limit(cfg.ViewRate), cfg.ViewBurst)

	router.NewAuthRouter(s.Echo, gateway, router.WithSecureCookie(cfg.SecureCookie)).Bind()
	router.NewAdminRouter(s.Echo, pipeline).Bind()
	router.NewStatsRouter(s.Echo, gateway, pipeline.Views(), mediaPrefix).Bind()
	router.NewNewsRouter(s.Echo, pipeline, mediaPrefix,
		router.WithNewsMiddleware(viewLimiter.Middleware()),
		router.WithViewThrottle(viewLimiter.Allow),
	).Bind()
	router.NewMediaRouter(s.Echo, ingester, thumbnailer).Bind()

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	return s.Start()
}
