package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "slot_queries_total",
			Help:      "Day schedule computations.",
		},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled.",
		},
	)

	refundFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "refund_failures_total",
			Help:      "Refund attempts that failed during cancellation.",
		},
	)

	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "notification_failures_total",
			Help:      "Notifications dropped after exhausting retries.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, slotQueries, bookingsCreated,
			bookingsCancelled, refundFailures, notifyFailures)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncSlotQueries()       { slotQueries.Inc() }
func IncBookingsCreated()   { bookingsCreated.Inc() }
func IncBookingsCancelled() { bookingsCancelled.Inc() }
func IncRefundFailures()    { refundFailures.Inc() }
func IncNotifyFailures()    { notifyFailures.Inc() }
