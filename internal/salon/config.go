// Package salon provides salon-level configuration: opening hours, timezone,
// and the staff and service curation applied on top of the Square catalog.
package salon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
)

const defaultTimezone = "America/Vancouver"

// DayHours represents the opening hours for a single day.
// Nil means the salon is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "18:00" in 24-hour format
	// LastBookingBufferMinutes keeps the final stretch before Close free of new starts.
	LastBookingBufferMinutes int `json:"last_booking_buffer_minutes"`
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// Config holds salon-specific configuration.
type Config struct {
	SalonID       string        `json:"salon_id"`
	Name          string        `json:"name"`
	Timezone      string        `json:"timezone"` // e.g., "America/Vancouver"
	BusinessHours BusinessHours `json:"business_hours"`
	// DisplayNameOverrides maps a Square full name to the name guests see.
	DisplayNameOverrides map[string]string `json:"display_name_overrides,omitempty"`
	// ExcludedStaff lists Square full names hidden from booking.
	ExcludedStaff []string `json:"excluded_staff,omitempty"`
	// ExcludedServices lists catalog item names hidden from booking.
	ExcludedServices []string `json:"excluded_services,omitempty"`
}

// DefaultConfig returns the configuration used until an admin saves one.
func DefaultConfig(salonID string) *Config {
	weekday := func() *DayHours { return &DayHours{Open: "09:00", Close: "18:00", LastBookingBufferMinutes: 60} }
	return &Config{
		SalonID:  salonID,
		Name:     "Pearly Nail Salon",
		Timezone: defaultTimezone,
		BusinessHours: BusinessHours{
			Monday:    weekday(),
			Tuesday:   weekday(),
			Wednesday: weekday(),
			Thursday:  weekday(),
			Friday:    weekday(),
			Saturday:  weekday(),
			Sunday:    &DayHours{Open: "10:00", Close: "16:00", LastBookingBufferMinutes: 60},
		},
		DisplayNameOverrides: map[string]string{"Cheng Ping Deng": "Simone"},
		ExcludedServices: []string{
			"Cuticle Trim",
			"Gel Overlay 🙌",
			"Nail Trim *fingers",
			"Nail Trim *toes 🦶",
		},
	}
}

// GetHoursForDay returns the hours for a given weekday (0=Sunday, 6=Saturday).
func (b *BusinessHours) GetHoursForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// HasAnyHours returns true if at least one day has business hours configured.
func (b *BusinessHours) HasAnyHours() bool {
	return b.Sunday != nil || b.Monday != nil || b.Tuesday != nil ||
		b.Wednesday != nil || b.Thursday != nil || b.Friday != nil || b.Saturday != nil
}

// Location loads the salon timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

// WeeklyHours converts the configured hours into the engine's form.
func (c *Config) WeeklyHours() (availability.WeeklyHours, error) {
	var out availability.WeeklyHours
	for d := time.Sunday; d <= time.Saturday; d++ {
		h := c.BusinessHours.GetHoursForDay(d)
		if h == nil {
			continue
		}
		day, err := h.toEngine()
		if err != nil {
			return out, fmt.Errorf("salon: %s hours: %w", strings.ToLower(d.String()), err)
		}
		out[d] = &day
	}
	return out, nil
}

// Validate reports the first malformed day or an unknown timezone.
func (c *Config) Validate() error {
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("salon: unknown timezone %q", c.Timezone)
		}
	}
	_, err := c.WeeklyHours()
	return err
}

// DisplayName applies the override for a Square full name.
func (c *Config) DisplayName(fullName string) string {
	if override, ok := c.DisplayNameOverrides[fullName]; ok && override != "" {
		return override
	}
	return fullName
}

// IsStaffExcluded matches a full name against ExcludedStaff, ignoring case.
func (c *Config) IsStaffExcluded(fullName string) bool {
	return containsFold(c.ExcludedStaff, fullName)
}

// IsServiceExcluded matches a service name against ExcludedServices, ignoring case.
func (c *Config) IsServiceExcluded(name string) bool {
	return containsFold(c.ExcludedServices, name)
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), s) {
			return true
		}
	}
	return false
}

func (h *DayHours) toEngine() (availability.DayHours, error) {
	open, err := availability.ParseTimeOfDay(h.Open)
	if err != nil {
		return availability.DayHours{}, err
	}
	closeAt, err := availability.ParseTimeOfDay(h.Close)
	if err != nil {
		return availability.DayHours{}, err
	}
	day := availability.DayHours{Open: open, Close: closeAt, LastBookingBuffer: h.LastBookingBufferMinutes}
	if err := day.Validate(); err != nil {
		return availability.DayHours{}, err
	}
	return day, nil
}

// Store provides persistence for salon configurations.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new salon config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(salonID string) string {
	return fmt.Sprintf("salon:config:%s", salonID)
}

// Get retrieves salon config, returning default if not found.
func (s *Store) Get(ctx context.Context, salonID string) (*Config, error) {
	data, err := s.redis.Get(ctx, s.key(salonID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultConfig(salonID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("salon: get config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("salon: unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Set saves salon config.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("salon: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.SalonID), data, 0).Err(); err != nil {
		return fmt.Errorf("salon: set config: %w", err)
	}
	return nil
}
