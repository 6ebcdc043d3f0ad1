package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

const dateLayout = "2006-01-02"

// SettingsSource supplies the current salon settings for each request.
type SettingsSource interface {
	AvailabilitySettings(ctx context.Context) (Settings, error)
}

// RosterSource supplies the ordered, display-ready staff roster.
type RosterSource interface {
	Roster(ctx context.Context) (Roster, error)
}

// Handler exposes availability over HTTP.
type Handler struct {
	engine   *Engine
	settings SettingsSource
	roster   RosterSource
	logger   *logging.Logger
}

// NewHandler creates an availability HTTP handler. A nil settings source
// keeps the engine's own settings.
func NewHandler(engine *Engine, settings SettingsSource, roster RosterSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, settings: settings, roster: roster, logger: logger}
}

// Routes returns the availability routes, mounted under /api/availability.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Query)
	r.Post("/next-dates", h.NextDates)
	return r
}

type serviceRequest struct {
	ID                string  `json:"id"`
	SquareVariationID string  `json:"squareVariationId,omitempty"`
	Name              string  `json:"name"`
	Duration          int     `json:"duration"`
	Price             float64 `json:"price"`
}

type technicianRequest struct {
	ID                 string `json:"id"`
	Name               string `json:"name,omitempty"`
	SquareTeamMemberID string `json:"squareTeamMemberId,omitempty"`
}

type guestRequest struct {
	GuestName  string             `json:"guestName"`
	Services   []serviceRequest   `json:"services"`
	Technician *technicianRequest `json:"technician,omitempty"`
}

// QueryRequest is the body of POST /api/availability.
type QueryRequest struct {
	Date   string         `json:"date"`
	Guests []guestRequest `json:"guests"`
}

// NextDatesRequest is the body of POST /api/availability/next-dates.
type NextDatesRequest struct {
	Date       string         `json:"date"`
	Guests     []guestRequest `json:"guests"`
	MaxResults int            `json:"maxResults,omitempty"`
	MaxDays    int            `json:"maxDays,omitempty"`
}

func toGuests(in []guestRequest) []Guest {
	guests := make([]Guest, 0, len(in))
	for i, g := range in {
		guest := Guest{Index: i, Name: strings.TrimSpace(g.GuestName), Preference: AnyStaff()}
		if t := g.Technician; t != nil {
			id := t.SquareTeamMemberID
			if id == "" {
				id = t.ID
			}
			if id != "" && !strings.EqualFold(id, "any") {
				guest.Preference = SpecificStaff(id)
			}
		}
		for _, s := range g.Services {
			id := s.SquareVariationID
			if id == "" {
				id = s.ID
			}
			guest.Services = append(guest.Services, Service{
				ID:              id,
				Name:            s.Name,
				DurationMinutes: s.Duration,
				PriceCents:      int64(math.Round(s.Price * 100)),
			})
		}
		guests = append(guests, guest)
	}
	return guests
}

type assignmentResponse struct {
	GuestIndex     int    `json:"guestIndex"`
	GuestName      string `json:"guestName"`
	TechnicianID   string `json:"technicianId"`
	TechnicianName string `json:"technicianName"`
}

type slotResponse struct {
	StartTime   string               `json:"startTime"`
	Time        string               `json:"time"`
	DisplayTime string               `json:"displayTime"`
	Assignments []assignmentResponse `json:"assignments"`
}

type unavailableGuestResponse struct {
	GuestIndex             int                `json:"guestIndex"`
	GuestName              string             `json:"guestName"`
	Technician             *technicianRequest `json:"technician,omitempty"`
	HasAvailability        bool               `json:"hasAvailability"`
	AvailableTechnicianIDs []string           `json:"availableTechnicianIds"`
}

// QueryResponse is the body returned by POST /api/availability.
type QueryResponse struct {
	Success           bool                       `json:"success"`
	Date              string                     `json:"date"`
	Slots             []slotResponse             `json:"slots"`
	AvailableSlots    []string                   `json:"availableSlots"`
	Message           string                     `json:"message"`
	Reason            string                     `json:"reason,omitempty"`
	UnavailableGuests []unavailableGuestResponse `json:"unavailableGuests,omitempty"`
}

type dateResponse struct {
	Date      string `json:"date"`
	SlotCount int    `json:"slotCount"`
}

// NextDatesResponse is the body returned by POST /api/availability/next-dates.
type NextDatesResponse struct {
	Success bool           `json:"success"`
	Dates   []dateResponse `json:"dates"`
}

// Query returns every group slot for one date.
// POST /api/availability
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	engine, err := h.engineFor(r.Context())
	if err != nil {
		h.logger.Error("failed to load salon settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to load salon settings"))
		return
	}
	date, err := parseDate(req.Date, engine.Settings().Location)
	if err != nil {
		h.writeError(w, err)
		return
	}
	guests := toGuests(req.Guests)
	if err := ValidateGuests(guests); err != nil {
		h.writeError(w, err)
		return
	}
	roster, err := h.roster.Roster(r.Context())
	if err != nil {
		h.logger.Error("failed to load roster", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("failed to load technicians"))
		return
	}

	res, err := engine.Query(r.Context(), date, guests, roster)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildQueryResponse(res, guests, req.Guests, roster))
}

// NextDates returns the next dates with at least one group slot.
// POST /api/availability/next-dates
func (h *Handler) NextDates(w http.ResponseWriter, r *http.Request) {
	var req NextDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	engine, err := h.engineFor(r.Context())
	if err != nil {
		h.logger.Error("failed to load salon settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to load salon settings"))
		return
	}
	date, err := parseDate(req.Date, engine.Settings().Location)
	if err != nil {
		h.writeError(w, err)
		return
	}
	guests := toGuests(req.Guests)
	if err := ValidateGuests(guests); err != nil {
		h.writeError(w, err)
		return
	}
	roster, err := h.roster.Roster(r.Context())
	if err != nil {
		h.logger.Error("failed to load roster", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("failed to load technicians"))
		return
	}

	dates, err := engine.NextAvailableDates(r.Context(), date, guests, roster, req.MaxResults, req.MaxDays)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := NextDatesResponse{Success: true, Dates: make([]dateResponse, 0, len(dates))}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, dateResponse{Date: d.Date.Format(dateLayout), SlotCount: d.SlotCount})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) engineFor(ctx context.Context) (*Engine, error) {
	if h.settings == nil {
		return h.engine, nil
	}
	settings, err := h.settings.AvailabilitySettings(ctx)
	if err != nil {
		return nil, err
	}
	return h.engine.WithSettings(settings), nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &InputError{Field: "date", GuestIndex: -1, Message: "date is required"}
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, &InputError{Field: "date", GuestIndex: -1, Message: fmt.Sprintf("expected YYYY-MM-DD, got %q", raw)}
	}
	return d, nil
}

func buildQueryResponse(res *Result, guests []Guest, raw []guestRequest, roster Roster) QueryResponse {
	resp := QueryResponse{
		Success:        true,
		Date:           res.Date.Format(dateLayout),
		Slots:          make([]slotResponse, 0, len(res.Slots)),
		AvailableSlots: make([]string, 0, len(res.Slots)),
	}
	names := make(map[int]string, len(guests))
	for _, g := range guests {
		names[g.Index] = g.DisplayName()
	}
	for _, slot := range res.Slots {
		clock := ClockOf(slot.Start)
		sr := slotResponse{
			StartTime:   slot.Start.Format(time.RFC3339),
			Time:        clock.String(),
			DisplayTime: clock.Display(),
			Assignments: make([]assignmentResponse, 0, len(slot.Assignments)),
		}
		for _, a := range slot.Assignments {
			sr.Assignments = append(sr.Assignments, assignmentResponse{
				GuestIndex:     a.GuestIndex,
				GuestName:      names[a.GuestIndex],
				TechnicianID:   a.StaffID,
				TechnicianName: roster.Name(a.StaffID),
			})
		}
		resp.Slots = append(resp.Slots, sr)
		resp.AvailableSlots = append(resp.AvailableSlots, sr.DisplayTime)
	}

	if res.Diagnosis == nil {
		resp.Message = fmt.Sprintf("Found %d available time slots", len(res.Slots))
		return resp
	}
	resp.Message = res.Diagnosis.Message
	resp.Reason = string(res.Diagnosis.Reason)
	for _, ug := range res.Diagnosis.UnavailableGuests {
		out := unavailableGuestResponse{
			GuestIndex:             ug.GuestIndex,
			GuestName:              ug.GuestName,
			AvailableTechnicianIDs: ug.AlternativeStaffIDs,
		}
		if out.AvailableTechnicianIDs == nil {
			out.AvailableTechnicianIDs = []string{}
		}
		if ug.GuestIndex >= 0 && ug.GuestIndex < len(raw) && raw[ug.GuestIndex].Technician != nil {
			out.Technician = raw[ug.GuestIndex].Technician
		} else {
			out.Technician = &technicianRequest{ID: ug.StaffID, Name: ug.StaffName}
		}
		resp.UnavailableGuests = append(resp.UnavailableGuests, out)
	}
	return resp
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var nb *booking.NotBookableError
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &nb):
		name := nb.ServiceName
		if name == "" {
			name = nb.ServiceVariationID
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(fmt.Sprintf("%q is not available for online booking.", name)))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("availability request timed out", "error", err)
		writeJSON(w, http.StatusGatewayTimeout, errorBody("availability lookup timed out"))
	default:
		h.logger.Error("availability request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to fetch availability"))
	}
}

func errorBody(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
