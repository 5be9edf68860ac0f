package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetricsRecord(t *testing.T) {
	m := New(false)
	m.ObserveAssessment("cardiovascular", "High")
	m.ObserveAssessment("cardiovascular", "High")
	m.ObserveAssessment("diabetes", "Low")
	m.ObserveGateRefusal()
	m.ObservePrediction(3 * time.Millisecond)
	m.ObserveRequest("/api/patients/:id/predictions", http.MethodGet, "200", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues("cardiovascular", "High")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateRefusals))

	out := scrape(t, m)
	assert.Contains(t, out, "postcovid_risk_assessments_total")
	assert.Contains(t, out, "postcovid_risk_insufficient_data_total 1")
	assert.Contains(t, out, "postcovid_risk_prediction_duration_seconds_count 1")
	assert.Contains(t, out, `postcovid_risk_http_requests_total{method="GET",route="/api/patients/:id/predictions",status="200"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAssessment("x", "Low")
		m.ObserveGateRefusal()
		m.ObservePrediction(time.Second)
		m.ObserveRequest("/", "GET", "200", time.Second)
	})
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRuntimeCollectors(t *testing.T) {
	out := scrape(t, New(true))
	assert.Contains(t, out, "go_goroutines")
}
