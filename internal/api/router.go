package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/api/handler"
	apimw "github.com/notifyhub/queue-watch/internal/api/middleware"
	"github.com/notifyhub/queue-watch/internal/messenger"
	"github.com/notifyhub/queue-watch/internal/monitor"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	ctrl *monitor.Controller,
	m *messenger.Messenger,
	hub *messenger.Hub,
	reg prometheus.Gatherer,
	allowedOrigins []string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// Foreground controllers are served from another origin.
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID", "X-Request-ID"},
			ExposedHeaders: []string{"X-Correlation-ID"},
			MaxAge:         300,
		}))
	}

	// --- handler instances ---
	mh := handler.NewMonitorHandler(ctrl, m, logger)
	sh := handler.NewStatsHandler(ctrl, hub)
	hh := handler.NewHealthHandler(ctrl)

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Foreground controllers hold a websocket here for acks and notifications.
	r.Handle("/ws", hub.Handler(m))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/monitors", mh.List)
		r.Post("/monitors/{queueID}", mh.Start)
		r.Get("/monitors/{queueID}", mh.Get)
		r.Delete("/monitors/{queueID}", mh.Stop)

		// JSON monitor snapshot
		r.Get("/stats", sh.GetStats)
	})

	return r
}
