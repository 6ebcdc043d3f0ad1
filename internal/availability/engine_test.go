package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
)

func TestQueryGuestAvailabilityNoServicesSkipsProvider(t *testing.T) {
	p := &booking.StaticProvider{Staff: staffMembers("A")}
	e := newTestEngine(t, p)

	ga, err := e.QueryGuestAvailability(context.Background(), testDay, Guest{Index: 0}, roster("A"))
	require.NoError(t, err)
	assert.True(t, ga.Empty())
	assert.Zero(t, p.Calls())
}

func TestQueryGuestAvailabilityQueriesActiveRosterForAnyStaff(t *testing.T) {
	p := &booking.StaticProvider{
		Staff: staffMembers("A", "B"),
		Openings: map[string][]time.Time{
			"A": {at(testDay, "10:00")},
			"B": {at(testDay, "11:00")},
		},
	}
	e := newTestEngine(t, p)
	r := Roster{{ID: "A", Active: true}, {ID: "B", Active: true}, {ID: "C", Active: false}}

	ga, err := e.QueryGuestAvailability(context.Background(), testDay, guest(0, "Ann", AnyStaff(), 30), r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, p.QueriedStaff())
	assert.True(t, ga.Has("A", at(testDay, "10:00")))
	assert.True(t, ga.Has("B", at(testDay, "11:00")))
	assert.False(t, ga.Has("A", at(testDay, "11:00")))
}

func TestQueryGuestAvailabilitySpecificStaffOnly(t *testing.T) {
	p := &booking.StaticProvider{Staff: staffMembers("A", "B")}
	e := newTestEngine(t, p)

	_, err := e.QueryGuestAvailability(context.Background(), testDay, guest(0, "Ann", SpecificStaff("B"), 30), roster("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, p.QueriedStaff())
}

func TestQueryGuestAvailabilityDegradesFailedStaff(t *testing.T) {
	p := &booking.StaticProvider{
		Staff:    staffMembers("A", "B"),
		Openings: map[string][]time.Time{"A": {at(testDay, "10:00")}, "B": {at(testDay, "10:00")}},
		Failures: map[string]error{"B": errors.New("square: status 500")},
	}
	e := newTestEngine(t, p)

	ga, err := e.QueryGuestAvailability(context.Background(), testDay, guest(0, "Ann", AnyStaff(), 30), roster("A", "B"))
	require.NoError(t, err)
	assert.True(t, ga.Has("A", at(testDay, "10:00")))
	assert.False(t, ga.Has("B", at(testDay, "10:00")))
}

func TestQueryGuestAvailabilityTimeoutIsZeroAvailability(t *testing.T) {
	p := &booking.StaticProvider{
		Staff:    staffMembers("A"),
		Openings: map[string][]time.Time{"A": {at(testDay, "10:00")}},
		Latency:  500 * time.Millisecond,
	}
	settings := testSettings()
	settings.ProviderTimeout = 20 * time.Millisecond
	e := newTestEngine(t, p).WithSettings(settings)

	ga, err := e.QueryGuestAvailability(context.Background(), testDay, guest(0, "Ann", AnyStaff(), 30), roster("A"))
	require.NoError(t, err)
	assert.True(t, ga.Empty())
}

func TestQueryGuestAvailabilityNotBookableIsFatal(t *testing.T) {
	g := guest(0, "Ann", AnyStaff(), 30)
	p := &booking.StaticProvider{
		Staff:       staffMembers("A", "B"),
		NotBookable: map[string]bool{g.Services[0].ID: true},
	}
	g.Services[0].Name = "Gel Overlay"
	e := newTestEngine(t, p)

	_, err := e.QueryGuestAvailability(context.Background(), testDay, g, roster("A", "B"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrServiceNotBookable))
	var nb *booking.NotBookableError
	require.True(t, errors.As(err, &nb))
	assert.Equal(t, "Gel Overlay", nb.ServiceName)
	assert.True(t, IsFatal(err))
}

func TestQueryGuestAvailabilityLeavesProviderErrorUntouched(t *testing.T) {
	g := guest(0, "Ann", AnyStaff(), 30)
	g.Services[0].Name = "Gel Overlay"
	shared := &booking.NotBookableError{ServiceVariationID: g.Services[0].ID}
	p := &booking.StaticProvider{
		Staff:    staffMembers("A", "B", "C"),
		Failures: map[string]error{"A": shared, "B": shared, "C": shared},
	}
	e := newTestEngine(t, p)

	_, err := e.QueryGuestAvailability(context.Background(), testDay, g, roster("A", "B", "C"))
	var nb *booking.NotBookableError
	require.True(t, errors.As(err, &nb))
	assert.Equal(t, "Gel Overlay", nb.ServiceName)
	assert.NotSame(t, shared, nb)
	assert.Empty(t, shared.ServiceName)
}

func TestQueryRejectsPreferenceForInactiveStaff(t *testing.T) {
	p := &booking.StaticProvider{
		Staff:    staffMembers("A", "B"),
		Openings: map[string][]time.Time{"B": {at(testDay, "10:00")}},
	}
	e := newTestEngine(t, p)
	r := Roster{{ID: "A", Active: true}, {ID: "B", DisplayName: "Ben", Active: false}}

	_, err := e.Query(context.Background(), testDay, []Guest{guest(0, "Ann", SpecificStaff("B"), 30)}, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "Ben")
	assert.Zero(t, p.Calls())

	_, err = e.Query(context.Background(), testDay, []Guest{guest(0, "Ann", SpecificStaff("gone"), 30)}, r)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryGuestAvailabilityDropsForeignStaffOpenings(t *testing.T) {
	e := newTestEngine(t, foreignProvider{})
	ga, err := e.QueryGuestAvailability(context.Background(), testDay, guest(0, "Ann", SpecificStaff("A"), 30), roster("A"))
	require.NoError(t, err)
	assert.True(t, ga.Has("A", at(testDay, "09:00")))
	assert.False(t, ga.Has("Z", at(testDay, "10:00")))
	assert.Len(t, ga["A"], 1)
}

// foreignProvider returns one unattributed opening and one for another staff id.
type foreignProvider struct{}

func (foreignProvider) Name() string { return "foreign" }

func (foreignProvider) SearchAvailability(ctx context.Context, q booking.AvailabilityQuery) ([]booking.Opening, error) {
	return []booking.Opening{
		{StartAt: at(testDay, "09:00")},
		{StartAt: at(testDay, "10:00"), StaffID: "Z"},
	}, nil
}

func (foreignProvider) ListTeamMembers(ctx context.Context, locationID string) ([]booking.TeamMember, error) {
	return nil, nil
}

func (foreignProvider) ListServices(ctx context.Context) ([]booking.Service, error) {
	return nil, nil
}

func TestAggregateKeysByGuestIndex(t *testing.T) {
	p := &booking.StaticProvider{
		Staff:    staffMembers("A", "B"),
		Openings: map[string][]time.Time{"A": {at(testDay, "10:00")}, "B": {at(testDay, "12:00")}},
	}
	e := newTestEngine(t, p)
	guests := []Guest{guest(0, "Ann", SpecificStaff("A"), 30), guest(1, "Bea", SpecificStaff("B"), 30)}

	out, err := e.Aggregate(context.Background(), testDay, guests, roster("A", "B"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Has("A", at(testDay, "10:00")))
	assert.True(t, out[1].Has("B", at(testDay, "12:00")))
}

func TestQueryRejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t, &booking.StaticProvider{})
	ctx := context.Background()

	_, err := e.Query(ctx, testDay, nil, roster("A"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Query(ctx, testDay, []Guest{{Index: 0, Name: "Ann"}}, roster("A"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "no services selected")

	_, err = e.Query(ctx, time.Time{}, []Guest{guest(0, "Ann", AnyStaff(), 30)}, roster("A"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryFindsGroupSlots(t *testing.T) {
	p := &booking.StaticProvider{
		Staff: staffMembers("A", "B"),
		Openings: map[string][]time.Time{
			"A": {at(testDay, "10:00"), at(testDay, "14:00")},
			"B": {at(testDay, "10:00"), at(testDay, "15:00")},
		},
	}
	e := newTestEngine(t, p)
	guests := []Guest{guest(0, "Ann", AnyStaff(), 45), guest(1, "Bea", AnyStaff(), 60)}

	res, err := e.Query(context.Background(), testDay, guests, roster("A", "B"))
	require.NoError(t, err)
	require.Len(t, res.Slots, 1)
	assert.Nil(t, res.Diagnosis)
	assert.Equal(t, at(testDay, "10:00"), res.Slots[0].Start)
	assert.Equal(t, []Assignment{{GuestIndex: 0, StaffID: "B"}, {GuestIndex: 1, StaffID: "A"}}, res.Slots[0].Assignments)
}

func TestQueryObservedCandidates(t *testing.T) {
	p := &booking.StaticProvider{
		Staff:    staffMembers("A"),
		Openings: map[string][]time.Time{"A": {at(testDay, "10:10")}},
	}
	settings := testSettings()
	settings.CandidateMode = CandidateObserved
	e := newTestEngine(t, p).WithSettings(settings)

	res, err := e.Query(context.Background(), testDay, []Guest{guest(0, "Ann", AnyStaff(), 30)}, roster("A"))
	require.NoError(t, err)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, at(testDay, "10:10"), res.Slots[0].Start)

	grid := newTestEngine(t, p)
	res, err = grid.Query(context.Background(), testDay, []Guest{guest(0, "Ann", AnyStaff(), 30)}, roster("A"))
	require.NoError(t, err)
	assert.Empty(t, res.Slots)
	require.NotNil(t, res.Diagnosis)
	assert.Equal(t, ReasonOutsideBusinessHours, res.Diagnosis.Reason)
}

func TestQueryClosedDaySkipsProvider(t *testing.T) {
	p := &booking.StaticProvider{Staff: staffMembers("A")}
	settings := testSettings()
	settings.Hours[testDay.Weekday()] = nil
	e := newTestEngine(t, p).WithSettings(settings)

	res, err := e.Query(context.Background(), testDay, []Guest{guest(0, "Ann", AnyStaff(), 30)}, roster("A"))
	require.NoError(t, err)
	require.NotNil(t, res.Diagnosis)
	assert.Equal(t, ReasonClosed, res.Diagnosis.Reason)
	assert.Zero(t, p.Calls())
}

func TestQueryCancelledContext(t *testing.T) {
	p := &booking.StaticProvider{Staff: staffMembers("A"), Latency: time.Second}
	e := newTestEngine(t, p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Query(ctx, testDay, []Guest{guest(0, "Ann", AnyStaff(), 30)}, roster("A"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDayStartUsesSalonLocation(t *testing.T) {
	settings := testSettings()
	settings.Location = time.FixedZone("PST", -8*60*60)
	e := NewEngine(nil, settings, nil, nil)

	// 03:00 UTC on the 15th is still the 14th in the salon.
	got := e.DayStart(time.Date(2025, 3, 15, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, 14, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, settings.Location, got.Location())
}
