// Package catalog serves the bookable service and staff directory: provider
// data cached in Redis with the salon's curation applied on read.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
)

// Cache stores raw provider listings under a TTL.
type Cache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a cache namespaced by salon id.
func NewCache(redisClient *redis.Client, salonID string, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, prefix: fmt.Sprintf("catalog:%s", salonID), ttl: ttl}
}

func (c *Cache) key(kind string) string {
	return c.prefix + ":" + kind
}

// Services returns cached services; ok is false on a miss.
func (c *Cache) Services(ctx context.Context) ([]booking.Service, bool, error) {
	var out []booking.Service
	ok, err := c.get(ctx, "services", &out)
	return out, ok, err
}

// SetServices caches the service list.
func (c *Cache) SetServices(ctx context.Context, services []booking.Service) error {
	return c.set(ctx, "services", services)
}

// TeamMembers returns cached team members; ok is false on a miss.
func (c *Cache) TeamMembers(ctx context.Context) ([]booking.TeamMember, bool, error) {
	var out []booking.TeamMember
	ok, err := c.get(ctx, "team_members", &out)
	return out, ok, err
}

// SetTeamMembers caches the team list.
func (c *Cache) SetTeamMembers(ctx context.Context, members []booking.TeamMember) error {
	return c.set(ctx, "team_members", members)
}

// Invalidate drops both listings.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.redis.Del(ctx, c.key("services"), c.key("team_members")).Err(); err != nil {
		return fmt.Errorf("catalog: invalidate: %w", err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, kind string, out any) (bool, error) {
	data, err := c.redis.Get(ctx, c.key(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: get %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("catalog: unmarshal %s: %w", kind, err)
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("catalog: marshal %s: %w", kind, err)
	}
	if err := c.redis.Set(ctx, c.key(kind), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("catalog: set %s: %w", kind, err)
	}
	return nil
}
