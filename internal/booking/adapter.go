// Package booking defines the scheduling-provider contract the availability
// engine depends on (Square Bookings in production, a static schedule in mock
// mode and tests) together with the provider-neutral types it exchanges.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrServiceNotBookable is matched by NotBookableError via errors.Is.
var ErrServiceNotBookable = errors.New("booking: service not bookable")

// NotBookableError reports that the provider refuses online booking for a
// service. It is never degraded into "no availability".
type NotBookableError struct {
	ServiceVariationID string
	ServiceName        string
	Detail             string
}

func (e *NotBookableError) Error() string {
	name := e.ServiceName
	if name == "" {
		name = e.ServiceVariationID
	}
	if e.Detail == "" {
		return fmt.Sprintf("booking: %q is not available for online booking", name)
	}
	return fmt.Sprintf("booking: %q is not available for online booking: %s", name, e.Detail)
}

func (e *NotBookableError) Unwrap() error { return ErrServiceNotBookable }

// Segment is one service in a sequential chain, optionally pinned to a staff member.
type Segment struct {
	ServiceVariationID string
	StaffID            string
	DurationMinutes    int
}

// AvailabilityQuery asks for start times on which the full segment chain can run.
type AvailabilityQuery struct {
	LocationID string
	StartAt    time.Time
	EndAt      time.Time
	Segments   []Segment
}

// Opening is a normalized provider answer: the chain can start at StartAt with
// StaffID performing it. StaffID may be empty when the provider omitted it.
type Opening struct {
	StartAt  time.Time
	StaffID  string
	Segments []Segment
}

// TeamMember is a staff record from the provider directory.
type TeamMember struct {
	ID         string
	GivenName  string
	FamilyName string
	Active     bool
}

// FullName joins the given and family names, "Team Member" when both are blank.
func (m TeamMember) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(m.GivenName) + " " + strings.TrimSpace(m.FamilyName))
	if name == "" {
		return "Team Member"
	}
	return name
}

// Service is a bookable catalog entry.
type Service struct {
	ID              string
	VariationID     string
	Name            string
	Category        string
	Description     string
	DurationMinutes int
	PriceCents      int64
	Currency        string
}

// BookingID returns the id availability searches must use for this service.
func (s Service) BookingID() string {
	if s.VariationID != "" {
		return s.VariationID
	}
	return s.ID
}

// Provider is implemented by every scheduling back end.
type Provider interface {
	// Name returns the provider identifier (e.g. "square", "static").
	Name() string

	// SearchAvailability returns the openings for the query window. Providers
	// return a *NotBookableError when a segment's service cannot be booked online.
	SearchAvailability(ctx context.Context, query AvailabilityQuery) ([]Opening, error)

	// ListTeamMembers returns the staff directory for a location.
	ListTeamMembers(ctx context.Context, locationID string) ([]TeamMember, error)

	// ListServices returns the bookable service catalog.
	ListServices(ctx context.Context) ([]Service, error)
}
