package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/internal/catalog"
	"github.com/dannytrann/pearly-nail-salon-next/internal/salon"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

const testAdminSecret = "admin-secret"

func newTestRouter(t *testing.T, mutate func(*Config)) http.Handler {
	t.Helper()
	logger := logging.New("error")
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := salon.NewStore(client)
	loc := salon.DefaultConfig("pearly").Location()
	provider := booking.NewMockProvider(loc, logger)

	cat := catalog.New(provider, catalog.NewCache(client, "pearly", time.Minute), store, "pearly", "", logger)
	engine := availability.NewEngine(provider, availability.Settings{}, logger, nil)
	settings := salon.NewSettingsProvider(store, "pearly", availability.Settings{ProviderTimeout: time.Second})

	cfg := &Config{
		Logger:              logger,
		AvailabilityHandler: availability.NewHandler(engine, settings, cat, logger),
		CatalogHandler:      catalog.NewHandler(cat, logger),
		SalonHandler:        salon.NewHandler(store, "pearly", logger),
		AdminAuthSecret:     testAdminSecret,
		CORSAllowedOrigins:  []string{"*"},
		ProviderName:        provider.Name(),
		HealthCheck:         func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "static", resp["provider"])
}

func TestRouterHealthDegraded(t *testing.T) {
	router := newTestRouter(t, func(c *Config) {
		c.HealthCheck = func(context.Context) error { return errors.New("redis down") }
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "degraded")
}

func TestRouterAvailabilityEndToEnd(t *testing.T) {
	router := newTestRouter(t, nil)

	body, err := json.Marshal(map[string]any{
		"date": "2025-03-14",
		"guests": []map[string]any{
			{"guestName": "Dana", "services": []map[string]any{{"id": "gel-spa-manicure", "name": "Gel Spa Manicure", "duration": 60}}, "technician": map[string]any{"id": "any"}},
			{"guestName": "Eve", "services": []map[string]any{{"id": "fix", "name": "Fix", "duration": 30}}, "technician": map[string]any{"id": "tan", "name": "Tan"}},
		},
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/availability", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp availability.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM"}, resp.AvailableSlots)
	first := resp.Slots[0]
	require.Len(t, first.Assignments, 2)
	assert.Equal(t, "kim", first.Assignments[0].TechnicianID)
	assert.Equal(t, "tan", first.Assignments[1].TechnicianID)
}

func TestRouterCatalogAndBusinessHours(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/staff", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var staff catalog.StaffResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&staff))
	assert.Len(t, staff.Technicians, 3)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/business-hours", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"lastBookableStart":"17:00"`)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/salon/config", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "owner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(testAdminSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/salon/config", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"salon_id":"pearly"`)
}

func TestRouterAdminDisabledWithoutSecret(t *testing.T) {
	router := newTestRouter(t, func(c *Config) { c.AdminAuthSecret = "" })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/salon/config", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterRateLimitsAPI(t *testing.T) {
	router := newTestRouter(t, func(c *Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/business-hours", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/business-hours", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
