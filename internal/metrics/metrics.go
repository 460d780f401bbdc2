package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/queue-watch/internal/monitor"
)

// Poll and notification outcomes used as label values.
const (
	ResultOK         = "ok"
	ResultFailed     = "failed"
	ResultCalled     = "called"
	ResultDelivered  = "delivered"
	ResultSuppressed = "suppressed"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Polls           *prometheus.CounterVec
	PollLatency     prometheus.Histogram
	Notifications   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsStopped *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_status_polls_total",
			Help: "Status polls by outcome (ok, failed, called).",
		}, []string{"result"}),

		PollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_status_poll_seconds",
			Help:    "Latency of status endpoint requests, failures included.",
			Buckets: prometheus.DefBuckets,
		}),

		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_notifications_total",
			Help: "Notification attempts by outcome (delivered, failed, suppressed).",
		}, []string{"result"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_monitor_sessions_active",
			Help: "Number of queues currently being monitored.",
		}),

		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_monitor_sessions_started_total",
			Help: "Monitoring sessions started.",
		}),

		SessionsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_monitor_sessions_stopped_total",
			Help: "Monitoring sessions stopped, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.Polls,
		m.PollLatency,
		m.Notifications,
		m.ActiveSessions,
		m.SessionsStarted,
		m.SessionsStopped,
	)

	return m
}

// MonitorHooks returns the callbacks expected by monitor.Hooks.
// Centralises the prometheus observation calls so the monitor stays import-free.
func (m *Metrics) MonitorHooks() monitor.Hooks {
	return monitor.Hooks{
		OnPoll: func(latency time.Duration, called bool, err error) {
			m.PollLatency.Observe(latency.Seconds())
			switch {
			case err != nil:
				m.Polls.WithLabelValues(ResultFailed).Inc()
			case called:
				m.Polls.WithLabelValues(ResultCalled).Inc()
			default:
				m.Polls.WithLabelValues(ResultOK).Inc()
			}
		},
		OnNotify: func(delivered bool) {
			if delivered {
				m.Notifications.WithLabelValues(ResultDelivered).Inc()
				return
			}
			m.Notifications.WithLabelValues(ResultFailed).Inc()
		},
		OnSuppressed: func() {
			m.Notifications.WithLabelValues(ResultSuppressed).Inc()
		},
		OnSessionStart: func() {
			m.SessionsStarted.Inc()
			m.ActiveSessions.Inc()
		},
		OnSessionStop: func(reason string) {
			m.SessionsStopped.WithLabelValues(reason).Inc()
			m.ActiveSessions.Dec()
		},
	}
}
