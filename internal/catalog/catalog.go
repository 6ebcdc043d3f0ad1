package catalog

import (
	"context"
	"fmt"

	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/internal/salon"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

const defaultCategory = "Other Services"

// Technician is a bookable staff member as guests see it.
type Technician struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	SquareTeamMemberID string `json:"squareTeamMemberId"`
	IsActive           bool   `json:"isActive"`
}

// ServiceEntry is a bookable service as guests see it.
type ServiceEntry struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Price             float64 `json:"price"`
	Duration          int     `json:"duration"`
	Description       string  `json:"description"`
	SquareItemID      string  `json:"squareItemId,omitempty"`
	SquareVariationID string  `json:"squareVariationId,omitempty"`
}

// Catalog combines the provider directory, the cache and salon curation.
type Catalog struct {
	provider   booking.Provider
	cache      *Cache
	configs    salon.ConfigStore
	salonID    string
	locationID string
	logger     *logging.Logger
}

var _ availability.RosterSource = (*Catalog)(nil)

// New creates a catalog; cache may be nil.
func New(provider booking.Provider, cache *Cache, configs salon.ConfigStore, salonID, locationID string, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{
		provider:   provider,
		cache:      cache,
		configs:    configs,
		salonID:    salonID,
		locationID: locationID,
		logger:     logger,
	}
}

// Source names the provider backing the catalog.
func (c *Catalog) Source() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

// Services returns bookable services minus the salon's excluded names.
func (c *Catalog) Services(ctx context.Context) ([]ServiceEntry, error) {
	cfg, err := c.configs.Get(ctx, c.salonID)
	if err != nil {
		return nil, err
	}
	raw, err := c.rawServices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ServiceEntry, 0, len(raw))
	for _, s := range raw {
		if cfg.IsServiceExcluded(s.Name) {
			continue
		}
		category := s.Category
		if category == "" {
			category = defaultCategory
		}
		out = append(out, ServiceEntry{
			ID:                s.ID,
			Name:              s.Name,
			Category:          category,
			Price:             float64(s.PriceCents) / 100,
			Duration:          s.DurationMinutes,
			Description:       s.Description,
			SquareItemID:      s.ID,
			SquareVariationID: s.VariationID,
		})
	}
	return out, nil
}

// Technicians returns active staff with display-name overrides applied and
// excluded staff removed. Exclusions match either the Square or display name.
func (c *Catalog) Technicians(ctx context.Context) ([]Technician, error) {
	cfg, err := c.configs.Get(ctx, c.salonID)
	if err != nil {
		return nil, err
	}
	members, err := c.rawTeamMembers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Technician, 0, len(members))
	for _, m := range members {
		if !m.Active {
			continue
		}
		fullName := m.FullName()
		display := cfg.DisplayName(fullName)
		if cfg.IsStaffExcluded(fullName) || cfg.IsStaffExcluded(display) {
			continue
		}
		out = append(out, Technician{ID: m.ID, Name: display, SquareTeamMemberID: m.ID, IsActive: m.Active})
	}
	return out, nil
}

// Roster implements availability.RosterSource.
func (c *Catalog) Roster(ctx context.Context) (availability.Roster, error) {
	techs, err := c.Technicians(ctx)
	if err != nil {
		return nil, err
	}
	roster := make(availability.Roster, 0, len(techs))
	for _, t := range techs {
		roster = append(roster, availability.StaffMember{ID: t.ID, DisplayName: t.Name, Active: t.IsActive})
	}
	return roster, nil
}

// Refresh drops cached listings so the next read hits the provider.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Invalidate(ctx)
}

func (c *Catalog) rawServices(ctx context.Context) ([]booking.Service, error) {
	if c.cache != nil {
		cached, ok, err := c.cache.Services(ctx)
		if err != nil {
			c.logger.Warn("catalog cache read failed", "kind", "services", "error", err)
		} else if ok {
			return cached, nil
		}
	}
	services, err := c.provider.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.SetServices(ctx, services); err != nil {
			c.logger.Warn("catalog cache write failed", "kind", "services", "error", err)
		}
	}
	return services, nil
}

func (c *Catalog) rawTeamMembers(ctx context.Context) ([]booking.TeamMember, error) {
	if c.cache != nil {
		cached, ok, err := c.cache.TeamMembers(ctx)
		if err != nil {
			c.logger.Warn("catalog cache read failed", "kind", "team_members", "error", err)
		} else if ok {
			return cached, nil
		}
	}
	members, err := c.provider.ListTeamMembers(ctx, c.locationID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list team members: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.SetTeamMembers(ctx, members); err != nil {
			c.logger.Warn("catalog cache write failed", "kind", "team_members", "error", err)
		}
	}
	return members, nil
}
