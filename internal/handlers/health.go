package handlers

import (
	"net/http"

	"harihar-backend/internal/models"
)

type modelStatus interface {
	ModelLoaded() bool
}

type HealthHandler struct {
	status modelStatus
}

func NewHealthHandler(status modelStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

// Root serves GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:      "HariHar is running!",
		ModelLoaded: h.status.ModelLoaded(),
	})
}

// Health serves GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:      "ok",
		ModelLoaded: h.status.ModelLoaded(),
	})
}
