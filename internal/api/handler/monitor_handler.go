package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/queue-watch/internal/api/middleware"
	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/messenger"
	"github.com/notifyhub/queue-watch/internal/monitor"
)

// MonitorHandler exposes the monitoring lifecycle over plain HTTP for
// controllers that cannot hold a websocket open.
type MonitorHandler struct {
	ctrl      *monitor.Controller
	messenger *messenger.Messenger
	logger    *zap.Logger
}

func NewMonitorHandler(ctrl *monitor.Controller, m *messenger.Messenger, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{ctrl: ctrl, messenger: m, logger: logger}
}

// Start handles POST /api/v1/monitors/{queueID}
//
// @Summary     Start monitoring a queue
// @Tags        monitors
// @Produce     json
// @Param       queueID  path      string  true   "Queue ID"
// @Param       noreply  query     bool    false  "Suppress the acknowledgement body"
// @Success     202      {object}  domain.Ack
// @Success     204      "Started, no acknowledgement requested"
// @Failure     422      {object}  map[string]string
// @Failure     503      {object}  map[string]string
// @Router      /api/v1/monitors/{queueID} [post]
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, domain.CmdStartMonitoring)
}

// Stop handles DELETE /api/v1/monitors/{queueID}
//
// @Summary     Stop monitoring a queue
// @Tags        monitors
// @Produce     json
// @Param       queueID  path      string  true   "Queue ID"
// @Param       noreply  query     bool    false  "Suppress the acknowledgement body"
// @Success     202      {object}  domain.Ack
// @Success     204      "Stopped, no acknowledgement requested"
// @Failure     422      {object}  map[string]string
// @Router      /api/v1/monitors/{queueID} [delete]
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, domain.CmdStopMonitoring)
}

// lifecycle routes a start or stop through the messenger so HTTP callers
// get the same acknowledgement semantics as websocket controllers.
func (h *MonitorHandler) lifecycle(w http.ResponseWriter, r *http.Request, typ domain.MessageType) {
	cmd := domain.Command{Type: typ, QueueID: chi.URLParam(r, "queueID")}

	noReply := false
	if v := r.URL.Query().Get("noreply"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "noreply must be a boolean")
			return
		}
		noReply = b
	}

	var ack *domain.Ack
	var reply messenger.ReplyChannel
	if !noReply {
		reply = messenger.ReplyFunc(func(_ context.Context, msg any) error {
			if a, ok := msg.(domain.Ack); ok {
				ack = &a
			}
			return nil
		})
	}

	if err := h.messenger.Receive(r.Context(), cmd, reply); err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("monitor command failed",
			zap.String("type", string(typ)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	if ack == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusAccepted, ack)
}

// List handles GET /api/v1/monitors
//
// @Summary  List active monitoring sessions
// @Tags     monitors
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/monitors [get]
func (h *MonitorHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.ctrl.Sessions()
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  sessions,
		"total": len(sessions),
	})
}

// Get handles GET /api/v1/monitors/{queueID}
//
// @Summary  Get one monitoring session
// @Tags     monitors
// @Produce  json
// @Param    queueID  path      string  true  "Queue ID"
// @Success  200      {object}  monitor.SessionInfo
// @Failure  404      {object}  map[string]string
// @Failure  422      {object}  map[string]string
// @Router   /api/v1/monitors/{queueID} [get]
func (h *MonitorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseQueueID(chi.URLParam(r, "queueID"))
	if err != nil {
		mapError(w, err)
		return
	}
	info, ok := h.ctrl.Session(id)
	if !ok {
		mapError(w, domain.ErrNotMonitoring)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
