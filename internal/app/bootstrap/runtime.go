// Package bootstrap wires the API process from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/internal/catalog"
	appconfig "github.com/dannytrann/pearly-nail-salon-next/internal/config"
	"github.com/dannytrann/pearly-nail-salon-next/internal/salon"
	"github.com/dannytrann/pearly-nail-salon-next/internal/square"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

// ErrSquareNotConfigured is returned when live bookings are enabled without credentials.
var ErrSquareNotConfigured = errors.New("bootstrap: USE_SQUARE_BOOKINGS requires SQUARE_ACCESS_TOKEN and SQUARE_LOCATION_ID")

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSalonStore returns the Redis-backed salon store, or an in-memory one
// when Redis is unavailable.
func BuildSalonStore(redisClient *redis.Client, logger *logging.Logger) salon.ConfigStore {
	if redisClient == nil {
		if logger != nil {
			logger.Warn("salon config is in memory; admin edits will not persist")
		}
		return salon.NewMemoryStore()
	}
	return salon.NewStore(redisClient)
}

// BuildCatalogCache returns nil without Redis or with a non-positive TTL.
func BuildCatalogCache(redisClient *redis.Client, cfg *appconfig.Config) *catalog.Cache {
	if redisClient == nil || cfg == nil || cfg.CatalogCacheTTL <= 0 {
		return nil
	}
	return catalog.NewCache(redisClient, cfg.SalonID, cfg.CatalogCacheTTL)
}

// BuildProvider returns the Square adapter when live bookings are enabled and
// the in-memory demo salon otherwise. loc anchors the demo schedule.
func BuildProvider(cfg *appconfig.Config, loc *time.Location, logger *logging.Logger) (booking.Provider, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.UseSquareBookings {
		logger.Info("square bookings disabled; using mock provider")
		return booking.NewMockProvider(loc, logger), nil
	}
	if !cfg.SquareConfigured() {
		return nil, ErrSquareNotConfigured
	}

	client := square.NewClient(cfg.SquareAccessToken, cfg.SquareSandbox, logger).
		WithBaseURL(cfg.SquareBaseURL).
		WithVersion(cfg.SquareVersion).
		WithRateLimit(cfg.SquareRateLimitRPS, cfg.SquareRateLimitBurst)
	logger.Info("square bookings enabled",
		"sandbox", cfg.SquareSandbox,
		"location_id", cfg.SquareLocationID,
	)
	return square.NewAdapter(client, logger), nil
}

// BuildEngineSettings maps process configuration onto engine settings. Hours
// and location come from the salon config at request time.
func BuildEngineSettings(cfg *appconfig.Config) availability.Settings {
	return availability.Settings{
		LocationID:           cfg.SquareLocationID,
		CandidateMode:        availability.ParseCandidateMode(cfg.CandidateMode),
		ProviderTimeout:      cfg.ProviderTimeout,
		MaxConcurrentQueries: cfg.MaxConcurrentQueries,
		SearchMaxDays:        cfg.SearchMaxDays,
		SearchMaxResults:     cfg.SearchMaxResults,
	}
}
