package availability

import (
	"context"
	"testing"
	"time"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

// testDay is a Friday.
var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hhmm string) time.Time {
	tod, err := ParseTimeOfDay(hhmm)
	if err != nil {
		panic(err)
	}
	return tod.On(day)
}

func hours(open, close string, buffer int) *DayHours {
	o, err := ParseTimeOfDay(open)
	if err != nil {
		panic(err)
	}
	c, err := ParseTimeOfDay(close)
	if err != nil {
		panic(err)
	}
	return &DayHours{Open: o, Close: c, LastBookingBuffer: buffer}
}

func testSettings() Settings {
	var w WeeklyHours
	w[time.Sunday] = hours("10:00", "16:00", 60)
	for d := time.Monday; d <= time.Saturday; d++ {
		w[d] = hours("09:00", "18:00", 60)
	}
	return Settings{
		LocationID:           "L1",
		Location:             time.UTC,
		Hours:                w,
		ProviderTimeout:      time.Second,
		MaxConcurrentQueries: 4,
	}
}

func newTestEngine(t *testing.T, p booking.Provider) *Engine {
	t.Helper()
	return NewEngine(p, testSettings(), logging.New("error"), nil)
}

func staffMembers(ids ...string) []booking.TeamMember {
	out := make([]booking.TeamMember, 0, len(ids))
	for _, id := range ids {
		out = append(out, booking.TeamMember{ID: id, GivenName: id, Active: true})
	}
	return out
}

func roster(names ...string) Roster {
	r := make(Roster, 0, len(names))
	for _, n := range names {
		r = append(r, StaffMember{ID: n, DisplayName: n, Active: true})
	}
	return r
}

func guest(index int, name string, pref StaffPreference, durations ...int) Guest {
	g := Guest{Index: index, Name: name, Preference: pref}
	for i, d := range durations {
		g.Services = append(g.Services, Service{ID: name + "-svc-" + string(rune('a'+i)), Name: "Service", DurationMinutes: d})
	}
	return g
}

// availabilityAt gives every listed staff member an opening at each time.
func availabilityAt(staff []string, times ...time.Time) GuestAvailability {
	ga := GuestAvailability{}
	for _, s := range staff {
		for _, t := range times {
			ga.Add(s, t)
		}
	}
	return ga
}

type fixedRoster struct {
	roster Roster
	err    error
}

func (f fixedRoster) Roster(ctx context.Context) (Roster, error) { return f.roster, f.err }
