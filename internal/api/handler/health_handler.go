package handler

import (
	"net/http"

	"github.com/notifyhub/queue-watch/internal/monitor"
)

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	ctrl *monitor.Controller
}

func NewHealthHandler(ctrl *monitor.Controller) *HealthHandler { return &HealthHandler{ctrl: ctrl} }

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ctrl.Closed() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
