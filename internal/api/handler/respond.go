package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/monitor"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotMonitoring):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyMonitoring):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidQueueID):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnknownCommand):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, monitor.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
