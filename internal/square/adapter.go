package square

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

const defaultServiceMinutes = 30

// Adapter exposes the Square client as a booking.Provider.
type Adapter struct {
	client *Client
	logger *logging.Logger
}

var _ booking.Provider = (*Adapter)(nil)

// NewAdapter wraps a client.
func NewAdapter(client *Client, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{client: client, logger: logger}
}

// Name returns "square".
func (a *Adapter) Name() string { return "square" }

// SearchAvailability maps the query onto Square segment filters and normalizes
// the answer. Square's "not bookable" refusals become *booking.NotBookableError.
func (a *Adapter) SearchAvailability(ctx context.Context, q booking.AvailabilityQuery) ([]booking.Opening, error) {
	if a.client == nil {
		return nil, errors.New("square: client not configured")
	}
	filters := make([]SegmentFilter, 0, len(q.Segments))
	for _, seg := range q.Segments {
		f := SegmentFilter{ServiceVariationID: seg.ServiceVariationID}
		if seg.StaffID != "" {
			f.TeamMemberIDFilter = &teamMemberIDFilter{Any: []string{seg.StaffID}}
		}
		filters = append(filters, f)
	}

	raw, err := a.client.SearchAvailability(ctx, AvailabilitySearch{
		LocationID: q.LocationID,
		StartAt:    q.StartAt,
		EndAt:      q.EndAt,
		Segments:   filters,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if detail := apiErr.NotBookableDetail(); detail != "" {
				return nil, &booking.NotBookableError{
					ServiceVariationID: firstVariation(q.Segments),
					Detail:             detail,
				}
			}
		}
		return nil, err
	}

	openings := make([]booking.Opening, 0, len(raw))
	for _, av := range raw {
		opening, ok := normalizeAvailability(av)
		if !ok {
			a.logger.Warn("square: skipping availability with bad start_at", "start_at", av.StartAt)
			continue
		}
		openings = append(openings, opening)
	}
	sort.SliceStable(openings, func(i, j int) bool { return openings[i].StartAt.Before(openings[j].StartAt) })
	return openings, nil
}

// ListTeamMembers returns active staff at the location.
func (a *Adapter) ListTeamMembers(ctx context.Context, locationID string) ([]booking.TeamMember, error) {
	members, err := a.client.SearchTeamMembers(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	out := make([]booking.TeamMember, 0, len(members))
	for _, m := range members {
		out = append(out, booking.TeamMember{
			ID:         m.ID,
			GivenName:  m.GivenName,
			FamilyName: m.FamilyName,
			Active:     strings.EqualFold(m.Status, "ACTIVE"),
		})
	}
	return out, nil
}

// ListServices returns appointment services with their first variation.
// A failed category lookup leaves Category blank rather than failing.
func (a *Adapter) ListServices(ctx context.Context) ([]booking.Service, error) {
	items, err := a.client.SearchServiceItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	categories, err := a.client.ListCategories(ctx)
	if err != nil {
		a.logger.Warn("square: category lookup failed", "error", err)
		categories = nil
	}

	out := make([]booking.Service, 0, len(items))
	for _, item := range items {
		if item.IsDeleted || item.ItemData == nil {
			continue
		}
		out = append(out, toService(item, categories))
	}
	return out, nil
}

func normalizeAvailability(av Availability) (booking.Opening, bool) {
	start, err := time.Parse(time.RFC3339, av.StartAt)
	if err != nil {
		return booking.Opening{}, false
	}
	opening := booking.Opening{StartAt: start}
	for i, seg := range av.AppointmentSegments {
		if i == 0 {
			opening.StaffID = seg.TeamMemberID
		}
		opening.Segments = append(opening.Segments, booking.Segment{
			ServiceVariationID: seg.ServiceVariationID,
			StaffID:            seg.TeamMemberID,
			DurationMinutes:    seg.DurationMinutes,
		})
	}
	return opening, true
}

func toService(item CatalogObject, categories map[string]string) booking.Service {
	svc := booking.Service{
		ID:              item.ID,
		Name:            item.ItemData.Name,
		Description:     item.ItemData.Description,
		Category:        categories[item.ItemData.CategoryID()],
		DurationMinutes: defaultServiceMinutes,
	}
	if len(item.ItemData.Variations) == 0 {
		return svc
	}
	variation := item.ItemData.Variations[0]
	svc.VariationID = variation.ID
	if data := variation.ItemVariationData; data != nil {
		if data.ServiceDuration > 0 {
			svc.DurationMinutes = int(data.ServiceDuration / int64(time.Minute/time.Millisecond))
		}
		if data.PriceMoney != nil {
			svc.PriceCents = data.PriceMoney.Amount
			svc.Currency = data.PriceMoney.Currency
		}
	}
	return svc
}

func firstVariation(segments []booking.Segment) string {
	if len(segments) == 0 {
		return ""
	}
	return segments[0].ServiceVariationID
}
