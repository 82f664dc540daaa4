package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	rooms := 3
	m := New(func() int { return rooms })

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.MessagePosted()
	m.DeliveryFailed()
	m.SessionOperation("join_room", nil)
	m.SessionOperation("join_room", errors.New("room not found"))
	m.RateLimited("ws")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.connections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.messagesPosted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deliveriesFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sessionOps.WithLabelValues("join_room", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rateLimited.WithLabelValues("ws")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(func() int { return 7 })
	m.ObserveHTTP(http.MethodGet, "/api/rooms/{code}", http.StatusOK, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "huddle_rooms_active 7")
	assert.Contains(t, body, `huddle_http_requests_total{method="GET",route="/api/rooms/{code}",status="200"} 1`)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.MessagePosted()
		m.DeliveryFailed()
		m.RoomRemoved("empty")
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}
