package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndExposition(t *testing.T) {
	m := NewMetrics("engagement", prometheus.NewRegistry())

	m.TrackingEvents.WithLabelValues("open", ResultMatched).Inc()
	m.TrackingEvents.WithLabelValues("open", ResultMatched).Inc()
	m.TrackingEvents.WithLabelValues("click", ResultFailed).Inc()
	m.Registrations.WithLabelValues("created").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrackingEvents.WithLabelValues("open", ResultMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrackingEvents.WithLabelValues("click", ResultFailed)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `engagement_tracking_events_total{event="open",result="matched"} 2`)
	assert.Contains(t, string(body), `engagement_registrations_total{status="created"} 1`)
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	assert.NotPanics(t, func() {
		NewMetrics("engagement", nil)
		NewMetrics("engagement", nil)
	})
}
