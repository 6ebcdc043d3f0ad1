package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Square Bookings
	SquareAccessToken    string
	SquareLocationID     string
	SquareBaseURL        string
	SquareSandbox        bool
	SquareVersion        string
	SquareRateLimitRPS   float64
	SquareRateLimitBurst int
	UseSquareBookings    bool

	// Availability engine
	ProviderTimeout      time.Duration
	MaxConcurrentQueries int
	CandidateMode        string
	SearchMaxDays        int
	SearchMaxResults     int

	// Redis (salon config + catalog cache)
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	CatalogCacheTTL time.Duration

	SalonID            string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SquareAccessToken:    getEnv("SQUARE_ACCESS_TOKEN", ""),
		SquareLocationID:     getEnv("SQUARE_LOCATION_ID", ""),
		SquareBaseURL:        getEnv("SQUARE_BASE_URL", ""),
		SquareSandbox:        getEnvAsBool("SQUARE_SANDBOX", true),
		SquareVersion:        getEnv("SQUARE_VERSION", ""),
		SquareRateLimitRPS:   getEnvAsFloat("SQUARE_RATE_LIMIT_RPS", 10),
		SquareRateLimitBurst: getEnvAsInt("SQUARE_RATE_LIMIT_BURST", 20),
		UseSquareBookings:    getEnvAsBool("USE_SQUARE_BOOKINGS", false),

		ProviderTimeout:      getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		MaxConcurrentQueries: getEnvAsInt("MAX_CONCURRENT_QUERIES", 8),
		CandidateMode:        strings.ToLower(strings.TrimSpace(getEnv("CANDIDATE_MODE", "grid"))),
		SearchMaxDays:        getEnvAsInt("SEARCH_MAX_DAYS", 30),
		SearchMaxResults:     getEnvAsInt("SEARCH_MAX_RESULTS", 3),

		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 10*time.Minute),

		SalonID:            getEnv("SALON_ID", "pearly"),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// SquareConfigured reports whether live Square credentials are present.
func (c *Config) SquareConfigured() bool {
	return strings.TrimSpace(c.SquareAccessToken) != "" && strings.TrimSpace(c.SquareLocationID) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
