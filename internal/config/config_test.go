package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "SQUARE_ACCESS_TOKEN", "SQUARE_LOCATION_ID",
		"USE_SQUARE_BOOKINGS", "PROVIDER_TIMEOUT", "CANDIDATE_MODE", "SEARCH_MAX_DAYS", "SEARCH_MAX_RESULTS",
		"CORS_ALLOWED_ORIGINS", "SQUARE_SANDBOX"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.UseSquareBookings {
		t.Fatalf("expected square bookings disabled by default")
	}
	if !cfg.SquareSandbox {
		t.Fatalf("expected sandbox by default")
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Fatalf("expected default provider timeout, got %s", cfg.ProviderTimeout)
	}
	if cfg.CandidateMode != "grid" {
		t.Fatalf("expected grid candidate mode, got %s", cfg.CandidateMode)
	}
	if cfg.SearchMaxDays != 30 || cfg.SearchMaxResults != 3 {
		t.Fatalf("unexpected search defaults: days=%d results=%d", cfg.SearchMaxDays, cfg.SearchMaxResults)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.SquareConfigured() {
		t.Fatalf("expected square to be unconfigured")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("SQUARE_ACCESS_TOKEN", "sq-token")
	t.Setenv("SQUARE_LOCATION_ID", "L123")
	t.Setenv("SQUARE_SANDBOX", "false")
	t.Setenv("USE_SQUARE_BOOKINGS", "true")
	t.Setenv("PROVIDER_TIMEOUT", "4s")
	t.Setenv("CANDIDATE_MODE", " Observed ")
	t.Setenv("SQUARE_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pearly.example, ,https://admin.example")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.SquareConfigured() {
		t.Fatalf("expected square to be configured")
	}
	if cfg.SquareSandbox {
		t.Fatalf("expected production square")
	}
	if !cfg.UseSquareBookings {
		t.Fatalf("expected square bookings enabled")
	}
	if cfg.ProviderTimeout != 4*time.Second {
		t.Fatalf("expected 4s timeout, got %s", cfg.ProviderTimeout)
	}
	if cfg.CandidateMode != "observed" {
		t.Fatalf("expected normalized candidate mode, got %q", cfg.CandidateMode)
	}
	if cfg.SquareRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.SquareRateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CatalogCacheTTL != 10*time.Minute {
		t.Fatalf("expected invalid duration to fall back, got %s", cfg.CatalogCacheTTL)
	}
}
