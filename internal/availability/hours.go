package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SlotIncrementMinutes is the spacing of the candidate grid.
const SlotIncrementMinutes = 15

// TimeOfDay is a wall-clock time as minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "15:04".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("availability: parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// String renders 24-hour "09:00".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Display renders "9:00 AM".
func (t TimeOfDay) Display() string {
	hour, minute := int(t)/60, int(t)%60
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, period)
}

// On returns the instant at this wall-clock time on date's calendar day, in
// date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// ClockOf extracts the wall-clock time of t.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// DayHours are the opening hours for one weekday.
type DayHours struct {
	Open              TimeOfDay
	Close             TimeOfDay
	LastBookingBuffer int // minutes before Close after which no start is offered
}

// LastBookableStart is Close minus the buffer.
func (h DayHours) LastBookableStart() TimeOfDay {
	return h.Close - TimeOfDay(h.LastBookingBuffer)
}

// Validate enforces Open <= LastBookableStart <= Close.
func (h DayHours) Validate() error {
	if h.LastBookingBuffer < 0 {
		return fmt.Errorf("availability: negative last booking buffer %d", h.LastBookingBuffer)
	}
	if h.Open > h.LastBookableStart() {
		return fmt.Errorf("availability: last bookable start %s before open %s", h.LastBookableStart(), h.Open)
	}
	return nil
}

// fits reports whether a guest chain of longest minutes may start at t.
func (h DayHours) fits(t TimeOfDay, longest int) bool {
	return t >= h.Open && t <= h.LastBookableStart() && int(t)+longest <= int(h.Close)
}

// CandidateTimes returns grid times from Open through LastBookableStart in
// SlotIncrementMinutes steps, minus any T where T+longest runs past Close.
func (h DayHours) CandidateTimes(longest int) []TimeOfDay {
	start := h.Open
	if rem := int(start) % SlotIncrementMinutes; rem != 0 {
		start += TimeOfDay(SlotIncrementMinutes - rem)
	}
	var out []TimeOfDay
	for t := start; t <= h.LastBookableStart(); t += SlotIncrementMinutes {
		if h.fits(t, longest) {
			out = append(out, t)
		}
	}
	return out
}

// WeeklyHours holds hours indexed by time.Weekday; nil means closed.
type WeeklyHours [7]*DayHours

// For returns the hours for the weekday of date.
func (w WeeklyHours) For(date time.Time) (DayHours, bool) {
	h := w[date.Weekday()]
	if h == nil {
		return DayHours{}, false
	}
	return *h, true
}

// CandidateMode selects where candidate start times come from.
type CandidateMode string

const (
	// CandidateGrid uses the 15-minute business-hours grid.
	CandidateGrid CandidateMode = "grid"
	// CandidateObserved uses provider timestamps clipped to business hours.
	CandidateObserved CandidateMode = "observed"
)

// ParseCandidateMode defaults unknown values to CandidateGrid.
func ParseCandidateMode(s string) CandidateMode {
	if CandidateMode(strings.ToLower(strings.TrimSpace(s))) == CandidateObserved {
		return CandidateObserved
	}
	return CandidateGrid
}

// GridCandidates converts the business-hours grid for date into instants.
func GridCandidates(date time.Time, hours DayHours, longest int) []time.Time {
	times := hours.CandidateTimes(longest)
	out := make([]time.Time, 0, len(times))
	for _, t := range times {
		out = append(out, t.On(date))
	}
	return out
}

// ObservedCandidates returns every provider instant on date that any guest
// saw, kept only when it satisfies the same business-hours rule as the grid.
func ObservedCandidates(date time.Time, hours DayHours, longest int, availability map[int]GuestAvailability) []time.Time {
	seen := map[int64]time.Time{}
	for _, ga := range availability {
		for _, set := range ga {
			for k, t := range set {
				local := t.In(date.Location())
				if !sameDay(local, date) || !hours.fits(ClockOf(local), longest) {
					continue
				}
				seen[k] = local
			}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
