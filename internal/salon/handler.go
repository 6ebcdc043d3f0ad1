package salon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

// Handler provides HTTP endpoints for salon configuration.
type Handler struct {
	store   ConfigStore
	salonID string
	logger  *logging.Logger
}

// NewHandler creates a new salon config HTTP handler.
func NewHandler(store ConfigStore, salonID string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, salonID: salonID, logger: logger}
}

// AdminRoutes returns the config routes mounted under /admin/salon.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.GetConfig)
	r.Put("/config", h.UpdateConfig)
	r.Post("/config", h.UpdateConfig)
	return r
}

// GetConfig returns the salon configuration.
// GET /admin/salon/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context(), h.salonID)
	if err != nil {
		h.logger.Error("failed to get salon config", "salon_id", h.salonID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// UpdateConfigRequest is the request body for updating salon config.
type UpdateConfigRequest struct {
	Name                 string            `json:"name,omitempty"`
	Timezone             string            `json:"timezone,omitempty"`
	BusinessHours        *BusinessHours    `json:"business_hours,omitempty"`
	DisplayNameOverrides map[string]string `json:"display_name_overrides,omitempty"`
	ExcludedStaff        []string          `json:"excluded_staff,omitempty"`
	ExcludedServices     []string          `json:"excluded_services,omitempty"`
}

// UpdateConfig applies a partial update to the salon configuration.
// PUT /admin/salon/config
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	cfg, err := h.store.Get(r.Context(), h.salonID)
	if err != nil {
		h.logger.Error("failed to get salon config", "salon_id", h.salonID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		cfg.Name = req.Name
	}
	if req.Timezone != "" {
		cfg.Timezone = req.Timezone
	}
	if req.BusinessHours != nil {
		cfg.BusinessHours = *req.BusinessHours
	}
	if req.DisplayNameOverrides != nil {
		cfg.DisplayNameOverrides = req.DisplayNameOverrides
	}
	if req.ExcludedStaff != nil {
		cfg.ExcludedStaff = req.ExcludedStaff
	}
	if req.ExcludedServices != nil {
		cfg.ExcludedServices = req.ExcludedServices
	}

	if err := cfg.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.store.Set(r.Context(), cfg); err != nil {
		h.logger.Error("failed to save salon config", "salon_id", h.salonID, "error", err)
		http.Error(w, `{"error": "failed to save config"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("salon config updated", "salon_id", h.salonID, "name", cfg.Name)
	h.writeJSON(w, http.StatusOK, cfg)
}

type dayHoursResponse struct {
	Day               string `json:"day"`
	Closed            bool   `json:"closed"`
	Open              string `json:"open,omitempty"`
	Close             string `json:"close,omitempty"`
	LastBookableStart string `json:"lastBookableStart,omitempty"`
	DisplayOpen       string `json:"displayOpen,omitempty"`
	DisplayClose      string `json:"displayClose,omitempty"`
}

// BusinessHoursResponse is the public view of the weekly schedule.
type BusinessHoursResponse struct {
	Success  bool               `json:"success"`
	Timezone string             `json:"timezone"`
	Days     []dayHoursResponse `json:"days"`
}

// GetBusinessHours returns the weekly hours with the last bookable start.
// GET /api/business-hours
func (h *Handler) GetBusinessHours(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context(), h.salonID)
	if err != nil {
		h.logger.Error("failed to get salon config", "salon_id", h.salonID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	weekly, err := cfg.WeeklyHours()
	if err != nil {
		h.logger.Error("invalid salon hours", "salon_id", h.salonID, "error", err)
		http.Error(w, `{"error": "invalid business hours"}`, http.StatusInternalServerError)
		return
	}

	resp := BusinessHoursResponse{Success: true, Timezone: cfg.Location().String()}
	for d := time.Sunday; d <= time.Saturday; d++ {
		day := dayHoursResponse{Day: d.String()}
		if weekly[d] == nil {
			day.Closed = true
		} else {
			hours := weekly[d]
			day.Open = hours.Open.String()
			day.Close = hours.Close.String()
			day.LastBookableStart = hours.LastBookableStart().String()
			day.DisplayOpen = hours.Open.Display()
			day.DisplayClose = hours.Close.Display()
		}
		resp.Days = append(resp.Days, day)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
