package availability

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Aggregate collects availability for every guest concurrently. The result
// is keyed by guest index, so completion order never matters.
func (e *Engine) Aggregate(ctx context.Context, date time.Time, guests []Guest, roster Roster) (map[int]GuestAvailability, error) {
	if err := ValidateGuests(guests); err != nil {
		return nil, err
	}

	results := make([]GuestAvailability, len(guests))
	g, gctx := errgroup.WithContext(ctx)
	for i, guest := range guests {
		g.Go(func() error {
			ga, err := e.QueryGuestAvailability(gctx, date, guest, roster)
			if err != nil {
				return err
			}
			results[i] = ga
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]GuestAvailability, len(guests))
	for i, guest := range guests {
		out[guest.Index] = results[i]
	}
	return out, nil
}
