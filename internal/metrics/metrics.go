package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_bookings_created_total",
			Help: "Total number of booking create attempts by outcome",
		},
		[]string{"outcome"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_booking_transitions_total",
			Help: "Total number of booking transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	transitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cargo_booking_transition_duration_seconds",
			Help:    "Duration of the locked read-validate-write section",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"action"},
	)

	lockAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_booking_lock_acquisitions_total",
			Help: "Lock acquisition attempts by outcome (acquired, contended, unavailable)",
		},
		[]string{"outcome"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_cache_lookups_total",
			Help: "Cache lookups by entry kind and outcome (hit, miss, unavailable)",
		},
		[]string{"kind", "outcome"},
	)

	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_booking_events_published_total",
			Help: "Lifecycle events published to Kafka by outcome",
		},
		[]string{"outcome"},
	)

	notificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_notifications_sent_total",
			Help: "Shipper notifications sent by event type",
		},
		[]string{"type"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargo_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cargo_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordBookingCreated(outcome string) {
	bookingsCreatedTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(action, outcome string, duration time.Duration) {
	transitionsTotal.WithLabelValues(action, outcome).Inc()
	transitionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func RecordLockAcquisition(outcome string) {
	lockAcquisitionsTotal.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(kind, outcome string) {
	cacheLookupsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordEventPublished(outcome string) {
	eventsPublishedTotal.WithLabelValues(outcome).Inc()
}

func RecordNotificationSent(eventType string) {
	notificationsSentTotal.WithLabelValues(eventType).Inc()
}

func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
