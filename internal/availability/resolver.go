package availability

import (
	"fmt"
	"sort"
	"time"
)

// Rejection records why a candidate start time produced no slot.
type Rejection struct {
	Start      time.Time
	GuestIndex int
	StaffID    string
	Reason     string
}

// Resolution is the resolver output for one date.
type Resolution struct {
	Slots      []CandidateSlot
	Rejections []Rejection
}

// assignmentOrder sorts guests specific-staff first, then by longest total
// duration, then by original index.
func assignmentOrder(guests []Guest) []Guest {
	ordered := make([]Guest, len(guests))
	copy(ordered, guests)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Preference.IsAny() != b.Preference.IsAny() {
			return !a.Preference.IsAny()
		}
		if da, db := a.TotalDuration(), b.TotalDuration(); da != db {
			return da > db
		}
		return a.Index < b.Index
	})
	return ordered
}

// Resolve walks candidates in the given order and keeps every start time at
// which all guests can be served at once by distinct staff. Each guest claims
// the first unclaimed allowed staff member in roster order with an opening at
// exactly that instant; a single failure rejects the whole start time. Only
// active roster members are ever assigned.
func Resolve(guests []Guest, availability map[int]GuestAvailability, roster Roster, candidates []time.Time) Resolution {
	ordered := assignmentOrder(guests)
	active := roster.ActiveIDs()

	var res Resolution
	for _, start := range candidates {
		slot, rejection, ok := assignAt(start, ordered, availability, roster, active)
		if !ok {
			res.Rejections = append(res.Rejections, rejection)
			continue
		}
		res.Slots = append(res.Slots, slot)
	}
	sort.SliceStable(res.Slots, func(i, j int) bool { return res.Slots[i].Start.Before(res.Slots[j].Start) })
	return res
}

func assignAt(start time.Time, ordered []Guest, availability map[int]GuestAvailability, roster Roster, active []string) (CandidateSlot, Rejection, bool) {
	claimed := make(map[string]bool, len(ordered))
	assignments := make([]Assignment, 0, len(ordered))

	for _, g := range ordered {
		allowed := active
		inactive := false
		if !g.Preference.IsAny() {
			allowed = []string{g.Preference.StaffID}
			if !roster.Allows(g.Preference.StaffID) {
				allowed, inactive = nil, true
			}
		}
		ga := availability[g.Index]

		picked := ""
		for _, staffID := range allowed {
			if claimed[staffID] || !ga.Has(staffID, start) {
				continue
			}
			picked = staffID
			break
		}
		if picked == "" {
			reason := fmt.Sprintf("No available technician for %s", g.DisplayName())
			if !g.Preference.IsAny() {
				reason = fmt.Sprintf("%s is not available for %s", roster.Name(g.Preference.StaffID), g.DisplayName())
			}
			if inactive {
				reason = fmt.Sprintf("%s is not an active technician", roster.Name(g.Preference.StaffID))
			}
			return CandidateSlot{}, Rejection{Start: start, GuestIndex: g.Index, StaffID: g.Preference.StaffID, Reason: reason}, false
		}
		claimed[picked] = true
		assignments = append(assignments, Assignment{GuestIndex: g.Index, StaffID: picked})
	}

	sort.Slice(assignments, func(i, j int) bool { return assignments[i].GuestIndex < assignments[j].GuestIndex })
	return CandidateSlot{Start: start, Assignments: assignments}, Rejection{}, true
}
