package handler

import (
	"net/http"

	"github.com/notifyhub/queue-watch/internal/messenger"
	"github.com/notifyhub/queue-watch/internal/monitor"
)

// StatsHandler serves a human-readable JSON snapshot of the monitor.
// Raw Prometheus metrics are available at /metrics via promhttp and are
// separate from this endpoint.
type StatsHandler struct {
	ctrl *monitor.Controller
	hub  *messenger.Hub
}

func NewStatsHandler(ctrl *monitor.Controller, hub *messenger.Hub) *StatsHandler {
	return &StatsHandler{ctrl: ctrl, hub: hub}
}

// GetStats handles GET /api/v1/stats
//
// @Summary  Real-time monitor snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/stats [get]
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"active_sessions":       len(h.ctrl.Sessions()),
		"connected_controllers": h.hub.Clients(),
		"poll_interval":         h.ctrl.Interval().String(),
	})
}
