package availability

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Reason classifies why a date has no group slot.
type Reason string

const (
	ReasonClosed                   Reason = "closed"
	ReasonStaffUnavailable         Reason = "staff_unavailable"
	ReasonOutsideBusinessHours     Reason = "outside_business_hours"
	ReasonSpecificStaffUnavailable Reason = "specific_staff_unavailable"
	ReasonInsufficientStaff        Reason = "insufficient_staff"
	ReasonNoCommonTime             Reason = "no_common_time"
)

// UnavailableGuest names a guest whose requested staff member is the bottleneck.
type UnavailableGuest struct {
	GuestIndex          int
	GuestName           string
	StaffID             string
	StaffName           string
	AlternativeStaffIDs []string
}

// Diagnosis explains an empty result.
type Diagnosis struct {
	Reason            Reason
	Message           string
	UnavailableGuests []UnavailableGuest
}

func closedDiagnosis() Diagnosis {
	return Diagnosis{Reason: ReasonClosed, Message: "The salon is closed on this date."}
}

// Diagnose attributes an empty result using only data already fetched.
// inHours reports, per guest index, whether any of the guest's openings fell
// on a candidate time.
func Diagnose(guests []Guest, availability map[int]GuestAvailability, inHours map[int]bool, roster Roster) Diagnosis {
	if len(guests) == 1 {
		g := guests[0]
		raw := availability[g.Index]
		switch {
		case raw.Empty():
			d := Diagnosis{Reason: ReasonStaffUnavailable}
			if g.Preference.IsAny() {
				d.Message = fmt.Sprintf("No technicians are available for %s on this date.", g.DisplayName())
				return d
			}
			name := roster.Name(g.Preference.StaffID)
			d.Message = fmt.Sprintf("%s is not available on this date.", name)
			d.UnavailableGuests = []UnavailableGuest{bottleneck(g, roster)}
			return d
		case !inHours[g.Index]:
			who := "No technician"
			if !g.Preference.IsAny() {
				who = roster.Name(g.Preference.StaffID)
			}
			return Diagnosis{
				Reason:  ReasonOutsideBusinessHours,
				Message: fmt.Sprintf("%s has no availability during business hours on this date.", who),
			}
		}
	}

	var blocked []UnavailableGuest
	anyStaff := false
	for _, g := range guests {
		if g.Preference.IsAny() {
			anyStaff = true
			continue
		}
		if availability[g.Index].Empty() {
			blocked = append(blocked, bottleneck(g, roster))
		}
	}

	switch {
	case len(blocked) == 1:
		return Diagnosis{
			Reason:            ReasonSpecificStaffUnavailable,
			Message:           fmt.Sprintf("%s is not available on this date.", blocked[0].StaffName),
			UnavailableGuests: blocked,
		}
	case len(blocked) > 1:
		return Diagnosis{
			Reason:            ReasonSpecificStaffUnavailable,
			Message:           "Some of your selected technicians are not available on this date.",
			UnavailableGuests: blocked,
		}
	case anyStaff:
		return Diagnosis{
			Reason:  ReasonInsufficientStaff,
			Message: fmt.Sprintf("Not enough available technicians for %d guests on this date.", len(guests)),
		}
	default:
		return Diagnosis{
			Reason:  ReasonNoCommonTime,
			Message: "No common times available for your selected technicians on this date.",
		}
	}
}

func bottleneck(g Guest, roster Roster) UnavailableGuest {
	return UnavailableGuest{
		GuestIndex: g.Index,
		GuestName:  g.DisplayName(),
		StaffID:    g.Preference.StaffID,
		StaffName:  roster.Name(g.Preference.StaffID),
	}
}

// explain runs Diagnose and fills in alternative staff for each bottleneck
// guest with extra per-staff queries.
func (e *Engine) explain(ctx context.Context, day time.Time, guests []Guest, availability map[int]GuestAvailability, inHours map[int]bool, roster Roster) (Diagnosis, error) {
	diag := Diagnose(guests, availability, inHours, roster)
	if len(diag.UnavailableGuests) == 0 {
		return diag, nil
	}

	byIndex := make(map[int]Guest, len(guests))
	for _, g := range guests {
		byIndex[g.Index] = g
	}

	type altQuery struct {
		slot    int
		staffID string
	}
	var queries []altQuery
	for i, ug := range diag.UnavailableGuests {
		for _, staffID := range roster.ActiveIDs() {
			if staffID != ug.StaffID {
				queries = append(queries, altQuery{slot: i, staffID: staffID})
			}
		}
	}

	found := make([]bool, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.MaxConcurrentQueries)
	for i, p := range queries {
		guest := byIndex[diag.UnavailableGuests[p.slot].GuestIndex]
		g.Go(func() error {
			starts, err := e.searchStaff(gctx, day, guest.Services, p.staffID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Debug("alternative staff query failed", "staff_id", p.staffID, "error", err)
				return nil
			}
			found[i] = len(starts) > 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Diagnosis{}, err
	}

	for i, p := range queries {
		if !found[i] {
			continue
		}
		ug := &diag.UnavailableGuests[p.slot]
		ug.AlternativeStaffIDs = append(ug.AlternativeStaffIDs, p.staffID)
	}
	return diag, nil
}
