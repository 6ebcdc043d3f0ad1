// Package availability resolves group appointments: it collects per-staff
// openings for every guest, filters them to business hours and assigns a
// distinct staff member to each guest at a shared start time.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Service is one item a guest has selected.
type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	PriceCents      int64
}

// StaffPreference is either a specific staff id or "any staff" (empty id).
type StaffPreference struct {
	StaffID string
}

// AnyStaff lets the resolver pick any active staff member.
func AnyStaff() StaffPreference { return StaffPreference{} }

// SpecificStaff pins a guest to one staff member.
func SpecificStaff(id string) StaffPreference {
	return StaffPreference{StaffID: strings.TrimSpace(id)}
}

// IsAny reports whether the preference accepts any staff member.
func (p StaffPreference) IsAny() bool { return p.StaffID == "" }

// Guest is one person in the party. Services run back to back.
type Guest struct {
	Index      int
	Name       string
	Services   []Service
	Preference StaffPreference
}

// TotalDuration is the sum of the guest's service durations in minutes.
func (g Guest) TotalDuration() int {
	total := 0
	for _, s := range g.Services {
		total += s.DurationMinutes
	}
	return total
}

// DisplayName falls back to "Guest N" (1-based).
func (g Guest) DisplayName() string {
	if name := strings.TrimSpace(g.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Guest %d", g.Index+1)
}

// StaffMember is a roster entry.
type StaffMember struct {
	ID          string
	DisplayName string
	Active      bool
}

// Roster is the ordered staff directory; order decides assignment priority.
type Roster []StaffMember

// ActiveIDs returns ids of active members in roster order.
func (r Roster) ActiveIDs() []string {
	ids := make([]string, 0, len(r))
	for _, m := range r {
		if m.Active {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Name returns the display name for id, or the id itself when unknown.
func (r Roster) Name(id string) string {
	for _, m := range r {
		if m.ID == id && m.DisplayName != "" {
			return m.DisplayName
		}
	}
	return id
}

// Allows reports whether id may take a booking: an active member, or any id
// when the roster is empty.
func (r Roster) Allows(id string) bool {
	if len(r) == 0 {
		return true
	}
	for _, m := range r {
		if m.ID == id {
			return m.Active
		}
	}
	return false
}

// TimeSet holds start instants keyed by Unix second so that equal instants
// in different locations collapse to one entry.
type TimeSet map[int64]time.Time

// GuestAvailability maps staff id to the instants that staff member can start
// the guest's full service chain.
type GuestAvailability map[string]TimeSet

// Add records that staffID can start at t.
func (a GuestAvailability) Add(staffID string, t time.Time) {
	set, ok := a[staffID]
	if !ok {
		set = TimeSet{}
		a[staffID] = set
	}
	set[t.Unix()] = t
}

// Has reports whether staffID can start exactly at t.
func (a GuestAvailability) Has(staffID string, t time.Time) bool {
	_, ok := a[staffID][t.Unix()]
	return ok
}

// Empty reports whether no staff member has any opening.
func (a GuestAvailability) Empty() bool {
	for _, set := range a {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// Times returns every distinct instant across staff, ascending.
func (a GuestAvailability) Times() []time.Time {
	seen := map[int64]time.Time{}
	for _, set := range a {
		for k, v := range set {
			seen[k] = v
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Assignment pairs a guest with the staff member serving them.
type Assignment struct {
	GuestIndex int
	StaffID    string
}

// CandidateSlot is a fully assigned start time: every guest appears exactly
// once and no staff id repeats.
type CandidateSlot struct {
	Start       time.Time
	Assignments []Assignment
}

// ErrInvalidInput is matched by every InputError.
var ErrInvalidInput = errors.New("availability: invalid input")

// InputError describes a malformed request.
type InputError struct {
	Field      string
	GuestIndex int
	Message    string
}

func (e *InputError) Error() string {
	if e.Field == "guests" && e.GuestIndex >= 0 {
		return fmt.Sprintf("availability: guest %d: %s", e.GuestIndex+1, e.Message)
	}
	return fmt.Sprintf("availability: %s: %s", e.Field, e.Message)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// ValidateGuests rejects an empty party and guests without services.
func ValidateGuests(guests []Guest) error {
	if len(guests) == 0 {
		return &InputError{Field: "guests", GuestIndex: -1, Message: "at least one guest is required"}
	}
	for _, g := range guests {
		if len(g.Services) == 0 {
			return &InputError{Field: "guests", GuestIndex: g.Index, Message: "no services selected"}
		}
	}
	return nil
}

// ValidatePreferences rejects guests who ask for a staff member the roster
// does not list as active, including excluded staff.
func ValidatePreferences(guests []Guest, roster Roster) error {
	for _, g := range guests {
		if g.Preference.IsAny() || roster.Allows(g.Preference.StaffID) {
			continue
		}
		return &InputError{
			Field:      "guests",
			GuestIndex: g.Index,
			Message:    fmt.Sprintf("technician %s is not available for online booking", roster.Name(g.Preference.StaffID)),
		}
	}
	return nil
}

func longestDuration(guests []Guest) int {
	longest := 0
	for _, g := range guests {
		if d := g.TotalDuration(); d > longest {
			longest = d
		}
	}
	return longest
}
