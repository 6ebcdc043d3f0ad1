package availability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DateAvailability is one date with at least one group slot.
type DateAvailability struct {
	Date      time.Time
	SlotCount int
}

// NextAvailableDates scans the days after startDate in concurrent batches and
// returns up to maxResults dates in chronological order. The scan gives up
// after EmptyBatchLimit complete batches without a hit. maxDays is capped at
// SearchMaxDays and maxResults at the number of days scanned; zero or
// negative values take the configured defaults.
func (e *Engine) NextAvailableDates(ctx context.Context, startDate time.Time, guests []Guest, roster Roster, maxResults, maxDays int) ([]DateAvailability, error) {
	if startDate.IsZero() {
		return nil, &InputError{Field: "date", GuestIndex: -1, Message: "date is required"}
	}
	if err := ValidateGuests(guests); err != nil {
		return nil, err
	}
	if err := ValidatePreferences(guests, roster); err != nil {
		return nil, err
	}
	maxDays, maxResults = e.searchLimits(maxDays, maxResults)

	ctx, span := tracer.Start(ctx, "availability.next_dates")
	defer span.End()

	first := e.DayStart(startDate)
	batchSize := e.settings.SearchBatchDays
	var found []DateAvailability
	scanned := 0
	defer func() {
		e.metrics.AddDaysScanned(scanned)
		span.SetAttributes(attribute.Int("salon.days_scanned", scanned), attribute.Int("salon.dates_found", len(found)))
	}()

	for batch := 0; batch*batchSize < maxDays; batch++ {
		offset := batch*batchSize + 1
		size := min(batchSize, maxDays-batch*batchSize)

		counts, err := e.scanBatch(ctx, first, offset, size, guests, roster)
		if err != nil {
			return nil, err
		}
		scanned += size

		for i, n := range counts {
			if n == 0 {
				continue
			}
			found = append(found, DateAvailability{Date: first.AddDate(0, 0, offset+i), SlotCount: n})
			if len(found) >= maxResults {
				return found, nil
			}
		}
		if len(found) == 0 && batch+1 >= e.settings.EmptyBatchLimit {
			e.logger.Debug("next available search abandoned", "start", first.Format("2006-01-02"), "days_scanned", scanned)
			break
		}
	}
	return found, nil
}

func (e *Engine) searchLimits(maxDays, maxResults int) (int, int) {
	if maxDays <= 0 || maxDays > e.settings.SearchMaxDays {
		maxDays = e.settings.SearchMaxDays
	}
	if maxResults <= 0 {
		maxResults = e.settings.SearchMaxResults
	}
	return maxDays, min(maxResults, maxDays)
}

// scanBatch counts slots for size consecutive days starting offset days after
// first. Only the resolver runs per date; empty dates are not diagnosed.
// Non-fatal per-date failures count as zero.
func (e *Engine) scanBatch(ctx context.Context, first time.Time, offset, size int, guests []Guest, roster Roster) ([]int, error) {
	counts := make([]int, size)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < size; i++ {
		day := first.AddDate(0, 0, offset+i)
		g.Go(func() error {
			pass, err := e.resolveDay(gctx, day, guests, roster)
			if err != nil {
				if IsFatal(err) || gctx.Err() != nil {
					return err
				}
				e.logger.Warn("date skipped during search", "date", day.Format("2006-01-02"), "error", err)
				return nil
			}
			counts[i] = len(pass.resolution.Slots)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
