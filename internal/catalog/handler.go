package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

// Handler serves the public catalog endpoints.
type Handler struct {
	catalog *Catalog
	logger  *logging.Logger
}

// NewHandler creates a catalog HTTP handler.
func NewHandler(c *Catalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{catalog: c, logger: logger}
}

// ServicesResponse lists services flat and grouped by category.
type ServicesResponse struct {
	Success     bool                      `json:"success"`
	Services    []ServiceEntry            `json:"services"`
	Categories  map[string][]ServiceEntry `json:"categories"`
	Technicians []Technician              `json:"technicians"`
	Source      string                    `json:"source"`
}

// StaffResponse lists bookable technicians.
type StaffResponse struct {
	Success     bool         `json:"success"`
	Technicians []Technician `json:"technicians"`
	Source      string       `json:"source"`
}

// GetServices handles GET /api/services.
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.Services(r.Context())
	if err != nil {
		h.logger.Error("failed to load services", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "Failed to fetch services"})
		return
	}
	techs, err := h.catalog.Technicians(r.Context())
	if err != nil {
		h.logger.Error("failed to load technicians", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "Failed to fetch technicians"})
		return
	}

	categories := make(map[string][]ServiceEntry)
	for _, s := range services {
		categories[s.Category] = append(categories[s.Category], s)
	}

	w.Header().Set("Cache-Control", "public, s-maxage=300, stale-while-revalidate=600")
	h.writeJSON(w, http.StatusOK, ServicesResponse{
		Success:     true,
		Services:    services,
		Categories:  categories,
		Technicians: techs,
		Source:      h.catalog.Source(),
	})
}

// GetStaff handles GET /api/staff.
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	techs, err := h.catalog.Technicians(r.Context())
	if err != nil {
		h.logger.Error("failed to load technicians", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "Failed to fetch technicians"})
		return
	}
	h.writeJSON(w, http.StatusOK, StaffResponse{Success: true, Technicians: techs, Source: h.catalog.Source()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
