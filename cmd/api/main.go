package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dannytrann/pearly-nail-salon-next/internal/api/router"
	"github.com/dannytrann/pearly-nail-salon-next/internal/app/bootstrap"
	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
	"github.com/dannytrann/pearly-nail-salon-next/internal/catalog"
	appconfig "github.com/dannytrann/pearly-nail-salon-next/internal/config"
	"github.com/dannytrann/pearly-nail-salon-next/internal/observability/metrics"
	"github.com/dannytrann/pearly-nail-salon-next/internal/salon"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting pearly booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"square_bookings", cfg.UseSquareBookings,
	)

	ctx := context.Background()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	handler, err := buildHandler(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the availability metrics on a private registry.
func setupMetrics() (http.Handler, *metrics.AvailabilityMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewAvailabilityMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// buildHandler wires stores, provider, engine and handlers into the router.
// redisClient may be nil.
func buildHandler(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (http.Handler, error) {
	store := bootstrap.BuildSalonStore(redisClient, logger)
	salonCfg, err := store.Get(ctx, cfg.SalonID)
	if err != nil {
		return nil, fmt.Errorf("load salon config: %w", err)
	}

	provider, err := bootstrap.BuildProvider(cfg, salonCfg.Location(), logger)
	if err != nil {
		return nil, err
	}

	metricsHandler, availabilityMetrics := setupMetrics()
	base := bootstrap.BuildEngineSettings(cfg)
	engine := availability.NewEngine(provider, base, logger, availabilityMetrics)

	cat := catalog.New(provider, bootstrap.BuildCatalogCache(redisClient, cfg), store, cfg.SalonID, cfg.SquareLocationID, logger)
	settings := salon.NewSettingsProvider(store, cfg.SalonID, base)

	routerCfg := &router.Config{
		Logger:              logger,
		AvailabilityHandler: availability.NewHandler(engine, settings, cat, logger),
		CatalogHandler:      catalog.NewHandler(cat, logger),
		SalonHandler:        salon.NewHandler(store, cfg.SalonID, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		ProviderName:        provider.Name(),
	}
	if redisClient != nil {
		routerCfg.HealthCheck = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return router.New(routerCfg), nil
}
