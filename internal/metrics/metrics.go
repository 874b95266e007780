// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inboxd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxd_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks persisted messages by direction.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxd_messages_total",
			Help: "Total messages appended to the store",
		},
		[]string{"direction"},
	)

	// StatusTransitionsTotal tracks applied message status transitions.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxd_status_transitions_total",
			Help: "Total applied message status transitions",
		},
		[]string{"status"},
	)

	// EventsPublishedTotal tracks fan-out events by kind.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxd_events_published_total",
			Help: "Total events published to conversation subscribers",
		},
		[]string{"kind"},
	)

	// WSConnectionsActive tracks active WebSocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inboxd_ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordMessage records a persisted message.
func RecordMessage(direction string) {
	MessagesTotal.WithLabelValues(direction).Inc()
}

// RecordStatusTransition records an applied status transition.
func RecordStatusTransition(status string) {
	StatusTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordEventPublished records a fan-out event.
func RecordEventPublished(kind string) {
	EventsPublishedTotal.WithLabelValues(kind).Inc()
}

// IncWSConnections increments the active WebSocket connection count.
func IncWSConnections() {
	WSConnectionsActive.Inc()
}

// DecWSConnections decrements the active WebSocket connection count.
func DecWSConnections() {
	WSConnectionsActive.Dec()
}
