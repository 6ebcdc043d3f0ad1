package square

import (
	"fmt"
	"strings"
)

// Error is one entry of Square's error envelope.
type Error struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}

// APIError is returned for non-2xx responses and for 2xx responses that still
// carry an errors array.
type APIError struct {
	StatusCode int
	Operation  string
	Errors     []Error
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		first := e.Errors[0]
		return fmt.Sprintf("square: %s: status %d: %s: %s", e.Operation, e.StatusCode, first.Code, first.Detail)
	}
	return fmt.Sprintf("square: %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// NotBookableDetail returns the first error detail saying a service cannot be
// booked online, or "" when none does.
func (e *APIError) NotBookableDetail() string {
	for _, err := range e.Errors {
		if strings.Contains(strings.ToLower(err.Detail), "not bookable") {
			return err.Detail
		}
	}
	return ""
}

// Money is Square's amount in the smallest currency unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type teamMemberIDFilter struct {
	Any []string `json:"any,omitempty"`
}

// SegmentFilter narrows availability to a service and optional staff.
type SegmentFilter struct {
	ServiceVariationID string              `json:"service_variation_id"`
	TeamMemberIDFilter *teamMemberIDFilter `json:"team_member_id_filter,omitempty"`
}

type startAtRange struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

type availabilityFilter struct {
	LocationID     string          `json:"location_id"`
	StartAtRange   startAtRange    `json:"start_at_range"`
	SegmentFilters []SegmentFilter `json:"segment_filters"`
}

type availabilityQuery struct {
	Filter availabilityFilter `json:"filter"`
}

type searchAvailabilityRequest struct {
	Query availabilityQuery `json:"query"`
}

// AppointmentSegment is one service inside an availability.
type AppointmentSegment struct {
	DurationMinutes         int    `json:"duration_minutes"`
	ServiceVariationID      string `json:"service_variation_id"`
	TeamMemberID            string `json:"team_member_id"`
	ServiceVariationVersion int64  `json:"service_variation_version,omitempty"`
}

// Availability is a bookable start time as Square reports it.
type Availability struct {
	StartAt             string               `json:"start_at"`
	LocationID          string               `json:"location_id"`
	AppointmentSegments []AppointmentSegment `json:"appointment_segments"`
}

type searchAvailabilityResponse struct {
	Availabilities []Availability `json:"availabilities"`
	Errors         []Error        `json:"errors,omitempty"`
}

type teamMemberFilter struct {
	LocationIDs []string `json:"location_ids,omitempty"`
	Status      string   `json:"status,omitempty"`
}

type teamMemberQuery struct {
	Filter teamMemberFilter `json:"filter"`
}

type searchTeamMembersRequest struct {
	Query  teamMemberQuery `json:"query"`
	Limit  int             `json:"limit,omitempty"`
	Cursor string          `json:"cursor,omitempty"`
}

// TeamMember is Square's staff record.
type TeamMember struct {
	ID         string `json:"id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Status     string `json:"status"`
}

type searchTeamMembersResponse struct {
	TeamMembers []TeamMember `json:"team_members"`
	Cursor      string       `json:"cursor,omitempty"`
	Errors      []Error      `json:"errors,omitempty"`
}

type searchCatalogItemsRequest struct {
	ProductTypes []string `json:"product_types,omitempty"`
	Cursor       string   `json:"cursor,omitempty"`
}

type searchCatalogObjectsRequest struct {
	ObjectTypes []string `json:"object_types"`
	Cursor      string   `json:"cursor,omitempty"`
}

// ItemVariationData carries duration and price for a service variation.
type ItemVariationData struct {
	Name                string `json:"name"`
	ServiceDuration     int64  `json:"service_duration,omitempty"` // milliseconds
	PriceMoney          *Money `json:"price_money,omitempty"`
	AvailableForBooking *bool  `json:"available_for_booking,omitempty"`
}

// CatalogObject is the subset of Square's catalog object model we read.
type CatalogObject struct {
	Type              string             `json:"type"`
	ID                string             `json:"id"`
	IsDeleted         bool               `json:"is_deleted,omitempty"`
	ItemData          *ItemData          `json:"item_data,omitempty"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
	CategoryData      *CategoryData      `json:"category_data,omitempty"`
}

// CategoryData names a catalog category.
type CategoryData struct {
	Name string `json:"name"`
}

type categoryRef struct {
	ID string `json:"id"`
}

// ItemData is the item body of a catalog object.
type ItemData struct {
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	ProductType       string          `json:"product_type,omitempty"`
	Categories        []categoryRef   `json:"categories,omitempty"`
	ReportingCategory *categoryRef    `json:"reporting_category,omitempty"`
	Variations        []CatalogObject `json:"variations,omitempty"`
}

// CategoryID returns the first category id, falling back to the reporting category.
func (d *ItemData) CategoryID() string {
	if d == nil {
		return ""
	}
	if len(d.Categories) > 0 {
		return d.Categories[0].ID
	}
	if d.ReportingCategory != nil {
		return d.ReportingCategory.ID
	}
	return ""
}

type searchCatalogItemsResponse struct {
	Items  []CatalogObject `json:"items"`
	Cursor string          `json:"cursor,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

type searchCatalogObjectsResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor,omitempty"`
	Errors  []Error         `json:"errors,omitempty"`
}
