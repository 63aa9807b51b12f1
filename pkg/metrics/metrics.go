package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Business metrics
	ActiveBookingsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_bookings_total",
			Help: "Current number of bookings in a non-terminal status",
		},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Total number of bookings by terminal outcome",
		},
		[]string{"status"},
	)

	AssignConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assign_conflicts_total",
			Help: "Number of assign attempts lost to a concurrent winner",
		},
	)

	PositionUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_updates_total",
			Help: "Total number of accepted position updates",
		},
	)

	TrackingSessionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_sessions_total",
			Help: "Current number of live tracking sessions",
		},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path string, status int, started time.Time) {
	code := strconv.Itoa(status)
	HttpRequestsTotal.WithLabelValues(method, path, code).Inc()
	HttpRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(started).Seconds())
}
