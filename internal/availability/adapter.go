package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
)

const opSearchAvailability = "search_availability"

// staffToQuery is the preferred id for a specific guest, else every active
// roster id in roster order.
func staffToQuery(guest Guest, roster Roster) []string {
	if !guest.Preference.IsAny() {
		return []string{guest.Preference.StaffID}
	}
	return roster.ActiveIDs()
}

// QueryGuestAvailability asks the provider, once per candidate staff member
// and concurrently, when that member can start the guest's whole service
// chain on date. A failed or timed-out staff query counts as no openings for
// that member; a not-bookable service fails the guest.
func (e *Engine) QueryGuestAvailability(ctx context.Context, date time.Time, guest Guest, roster Roster) (GuestAvailability, error) {
	out := GuestAvailability{}
	if len(guest.Services) == 0 {
		return out, nil
	}
	if err := e.requireProvider(); err != nil {
		return nil, err
	}
	staffIDs := staffToQuery(guest, roster)
	if len(staffIDs) == 0 {
		return out, nil
	}

	day := e.DayStart(date)
	perStaff := make([][]time.Time, len(staffIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.MaxConcurrentQueries)
	for i, staffID := range staffIDs {
		g.Go(func() error {
			starts, err := e.searchStaff(gctx, day, guest.Services, staffID)
			if err == nil {
				perStaff[i] = starts
				return nil
			}
			var nb *booking.NotBookableError
			if errors.As(err, &nb) {
				// Providers may share one error value across calls.
				named := *nb
				if named.ServiceName == "" {
					named.ServiceName = serviceName(guest.Services, named.ServiceVariationID)
				}
				return fmt.Errorf("availability: %s: %w", guest.DisplayName(), &named)
			}
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			e.logger.Warn("staff availability query failed; treating as unavailable",
				"date", day.Format("2006-01-02"),
				"guest_index", guest.Index,
				"staff_id", staffID,
				"error", err,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, staffID := range staffIDs {
		for _, t := range perStaff[i] {
			out.Add(staffID, t)
		}
	}
	return out, nil
}

// searchStaff runs one bounded provider call pinned to staffID and returns
// the normalized start instants attributed to that staff member.
func (e *Engine) searchStaff(ctx context.Context, day time.Time, services []Service, staffID string) ([]time.Time, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.settings.ProviderTimeout)
	defer cancel()

	segments := make([]booking.Segment, 0, len(services))
	for _, s := range services {
		segments = append(segments, booking.Segment{
			ServiceVariationID: s.ID,
			StaffID:            staffID,
			DurationMinutes:    s.DurationMinutes,
		})
	}

	started := time.Now()
	openings, err := e.provider.SearchAvailability(callCtx, booking.AvailabilityQuery{
		LocationID: e.settings.LocationID,
		StartAt:    day,
		EndAt:      day.AddDate(0, 0, 1),
		Segments:   segments,
	})
	e.metrics.ObserveProviderCall(opSearchAvailability, callOutcome(err, callCtx), time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(openings))
	for _, o := range openings {
		if o.StaffID != "" && o.StaffID != staffID {
			e.logger.Debug("dropping opening for unexpected staff", "queried", staffID, "got", o.StaffID)
			continue
		}
		if o.StartAt.IsZero() {
			continue
		}
		starts = append(starts, o.StartAt)
	}
	return starts, nil
}

func callOutcome(err error, ctx context.Context) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, booking.ErrServiceNotBookable):
		return "not_bookable"
	case ctx.Err() != nil:
		return "timeout"
	default:
		return "degraded"
	}
}

func serviceName(services []Service, id string) string {
	for _, s := range services {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}
