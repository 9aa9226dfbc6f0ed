package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_bookings_total",
			Help: "Total booking attempts by outcome",
		},
		[]string{"status"},
	)

	paymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_payment_transitions_total",
			Help: "Total payment status changes by target status and outcome",
		},
		[]string{"to", "status"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_checkins_total",
			Help: "Total gate check-in attempts by outcome",
		},
		[]string{"status"},
	)

	bookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_booking_duration_seconds",
			Help:    "Duration of the booking transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)
)

// Monitor records ticketing metrics. A nil Monitor records nothing.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// TrackBooking counts a booking attempt. status is "success" or an error code.
func (m *Monitor) TrackBooking(status string, duration time.Duration) {
	if m == nil {
		return
	}
	bookingOperations.WithLabelValues(status).Inc()
	if status == "success" {
		bookingDuration.Observe(duration.Seconds())
	}
}

func (m *Monitor) TrackPaymentTransition(to, status string) {
	if m == nil {
		return
	}
	paymentTransitions.WithLabelValues(to, status).Inc()
}

func (m *Monitor) TrackCheckIn(status string) {
	if m == nil {
		return
	}
	checkIns.WithLabelValues(status).Inc()
}

// Middleware observes request latency labelled by the matched chi route.
func (m *Monitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
