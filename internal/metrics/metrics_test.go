package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCounters(t *testing.T) {
	m := NewMonitor()

	before := testutil.ToFloat64(bookingOperations.WithLabelValues("success"))
	m.TrackBooking("success", 20*time.Millisecond)
	m.TrackBooking("SOLD_OUT", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(bookingOperations.WithLabelValues("success")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(bookingOperations.WithLabelValues("SOLD_OUT")), 1.0)

	before = testutil.ToFloat64(checkIns.WithLabelValues("success"))
	m.TrackCheckIn("success")
	assert.Equal(t, before+1, testutil.ToFloat64(checkIns.WithLabelValues("success")))

	before = testutil.ToFloat64(paymentTransitions.WithLabelValues("COMPLETED", "success"))
	m.TrackPaymentTransition("COMPLETED", "success")
	assert.Equal(t, before+1, testutil.ToFloat64(paymentTransitions.WithLabelValues("COMPLETED", "success")))
}

func TestNilMonitorIsNoop(t *testing.T) {
	var m *Monitor
	assert.NotPanics(t, func() {
		m.TrackBooking("success", time.Second)
		m.TrackCheckIn("success")
		m.TrackPaymentTransition("FAILED", "success")
	})
}

func TestBookingCounterIsLabelledByOutcomeOnly(t *testing.T) {
	NewMonitor().TrackBooking("DUPLICATE_BOOKING", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "ticket_bookings_total{") {
			assert.NotContains(t, line, "event_id")
		}
	}
	assert.Contains(t, rec.Body.String(), `ticket_bookings_total{status="DUPLICATE_BOOKING"}`)
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := NewMonitor()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `route="/api/tickets/{id}"`))
	assert.Contains(t, body, `code="418"`)
}
