package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

// StaticProvider serves a fixed schedule from memory. It backs mock mode when
// Square bookings are disabled and doubles as the provider in tests.
type StaticProvider struct {
	Staff    []TeamMember
	Services []Service

	// Openings lists explicit start instants per staff id.
	Openings map[string][]time.Time
	// DailyStarts ("15:04") are offered every day to every active staff member
	// in Location, in addition to Openings.
	DailyStarts []string
	Location    *time.Location

	// NotBookable holds service variation ids the provider refuses.
	NotBookable map[string]bool
	// Failures makes queries pinned to a staff id fail with the given error.
	Failures map[string]error
	// Latency delays every availability search; context cancellation wins.
	Latency time.Duration

	Logger *logging.Logger

	calls   atomic.Int64
	mu      sync.Mutex
	queried []string
}

var _ Provider = (*StaticProvider)(nil)

// NewMockProvider returns the demo salon used when live bookings are off.
func NewMockProvider(loc *time.Location, logger *logging.Logger) *StaticProvider {
	if loc == nil {
		loc = time.UTC
	}
	return &StaticProvider{
		Staff: []TeamMember{
			{ID: "kim", GivenName: "Kim", Active: true},
			{ID: "tan", GivenName: "Tan", Active: true},
			{ID: "mia", GivenName: "Mia", Active: true},
		},
		Services: []Service{
			{ID: "take-off", Name: "Take Off", Category: "Nail Services", DurationMinutes: 15, PriceCents: 1000, Currency: "CAD"},
			{ID: "fix", Name: "Fix", Category: "Nail Services", DurationMinutes: 30, PriceCents: 1500, Currency: "CAD"},
			{ID: "bare-manicure", Name: "Bare Manicure", Category: "Manicures", DurationMinutes: 30, PriceCents: 2000, Currency: "CAD"},
			{ID: "gel-spa-manicure", Name: "Gel Spa Manicure", Category: "Manicures", DurationMinutes: 60, PriceCents: 3800, Currency: "CAD"},
			{ID: "spa-pedicure", Name: "Spa Pedicure", Category: "Pedicures", DurationMinutes: 60, PriceCents: 4500, Currency: "CAD"},
			{ID: "gel-spa-pedicure", Name: "Gel Spa Pedicure", Category: "Pedicures", DurationMinutes: 75, PriceCents: 5500, Currency: "CAD"},
			{ID: "eyebrow", Name: "Eyebrow", Category: "Waxing", DurationMinutes: 15, PriceCents: 1000, Currency: "CAD"},
		},
		DailyStarts: []string{"09:00", "10:00", "11:00", "13:00", "14:00"},
		Location:    loc,
		Logger:      logger,
	}
}

// Name returns "static".
func (p *StaticProvider) Name() string { return "static" }

// Calls returns how many availability searches were served.
func (p *StaticProvider) Calls() int { return int(p.calls.Load()) }

// QueriedStaff returns the staff ids searched so far, in call order.
func (p *StaticProvider) QueriedStaff() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.queried))
	copy(out, p.queried)
	return out
}

// SearchAvailability returns configured openings inside the query window.
func (p *StaticProvider) SearchAvailability(ctx context.Context, query AvailabilityQuery) ([]Opening, error) {
	p.calls.Add(1)
	if p.Latency > 0 {
		timer := time.NewTimer(p.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, seg := range query.Segments {
		if p.NotBookable[seg.ServiceVariationID] {
			return nil, &NotBookableError{
				ServiceVariationID: seg.ServiceVariationID,
				ServiceName:        p.serviceName(seg.ServiceVariationID),
			}
		}
	}

	staffIDs := pinnedStaff(query.Segments)
	if len(staffIDs) == 0 {
		for _, m := range p.Staff {
			if m.Active {
				staffIDs = append(staffIDs, m.ID)
			}
		}
	}

	var out []Opening
	for _, staffID := range staffIDs {
		p.mu.Lock()
		p.queried = append(p.queried, staffID)
		p.mu.Unlock()

		if err := p.Failures[staffID]; err != nil {
			return nil, err
		}
		for _, start := range p.startsFor(staffID, query.StartAt, query.EndAt) {
			segs := make([]Segment, len(query.Segments))
			for i, seg := range query.Segments {
				seg.StaffID = staffID
				segs[i] = seg
			}
			out = append(out, Opening{StartAt: start, StaffID: staffID, Segments: segs})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

// ListTeamMembers returns the configured staff regardless of location.
func (p *StaticProvider) ListTeamMembers(ctx context.Context, locationID string) ([]TeamMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]TeamMember, len(p.Staff))
	copy(out, p.Staff)
	return out, nil
}

// ListServices returns the configured catalog.
func (p *StaticProvider) ListServices(ctx context.Context) ([]Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Service, len(p.Services))
	copy(out, p.Services)
	return out, nil
}

func (p *StaticProvider) startsFor(staffID string, from, to time.Time) []time.Time {
	var starts []time.Time
	for _, t := range p.Openings[staffID] {
		if inWindow(t, from, to) {
			starts = append(starts, t)
		}
	}
	if len(p.DailyStarts) == 0 || !p.isActive(staffID) {
		return starts
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	first := from.In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	for ; !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, hhmm := range p.DailyStarts {
			clock, err := time.Parse("15:04", hhmm)
			if err != nil {
				if p.Logger != nil {
					p.Logger.Warn("static provider: bad daily start", "value", hhmm, "error", err)
				}
				continue
			}
			t := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
			if inWindow(t, from, to) {
				starts = append(starts, t)
			}
		}
	}
	return starts
}

func (p *StaticProvider) isActive(staffID string) bool {
	for _, m := range p.Staff {
		if m.ID == staffID {
			return m.Active
		}
	}
	return false
}

func (p *StaticProvider) serviceName(variationID string) string {
	for _, s := range p.Services {
		if s.BookingID() == variationID {
			return s.Name
		}
	}
	return ""
}

func pinnedStaff(segments []Segment) []string {
	seen := map[string]bool{}
	var ids []string
	for _, seg := range segments {
		id := strings.TrimSpace(seg.StaffID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// String is used in debug logs.
func (o Opening) String() string {
	return fmt.Sprintf("%s@%s", o.StaffID, o.StartAt.Format(time.RFC3339))
}
