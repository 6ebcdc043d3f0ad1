package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
	"github.com/dannytrann/pearly-nail-salon-next/internal/catalog"
	httpmiddleware "github.com/dannytrann/pearly-nail-salon-next/internal/http/middleware"
	"github.com/dannytrann/pearly-nail-salon-next/internal/salon"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *availability.Handler
	CatalogHandler      *catalog.Handler
	SalonHandler        *salon.Handler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	RateLimitRPS        float64
	RateLimitBurst      int

	// HealthCheck reports dependency health (Redis); nil means always healthy.
	HealthCheck func(ctx context.Context) error
	// ProviderName is echoed by /health.
	ProviderName string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public booking API, rate limited per client IP.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		if cfg.AvailabilityHandler != nil {
			api.Mount("/availability", cfg.AvailabilityHandler.Routes())
		}
		if cfg.CatalogHandler != nil {
			api.Get("/services", cfg.CatalogHandler.GetServices)
			api.Get("/staff", cfg.CatalogHandler.GetStaff)
		}
		if cfg.SalonHandler != nil {
			api.Get("/business-hours", cfg.SalonHandler.GetBusinessHours)
		}
	})

	if cfg.AdminAuthSecret != "" && cfg.SalonHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Mount("/salon", cfg.SalonHandler.AdminRoutes())
		})
	}

	return r
}

func healthHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if cfg.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.HealthCheck(ctx); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("health check failed", "error", err)
				}
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "provider": cfg.ProviderName})
	}
}
