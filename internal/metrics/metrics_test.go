package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveDecision("api_call", OutcomeAllowed)
	m.ObserveDecision("api_call", OutcomeAllowed)
	m.ObserveDecision("api_call", OutcomeDenied)
	m.ObserveRecorded("api_call")
	m.ObserveThrottled()
	m.ObserveHTTP("/eligibility/check", http.MethodPost, 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("api_call", OutcomeAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("api_call", OutcomeDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionsRecorded.WithLabelValues("api_call")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/eligibility/check", "POST", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRecorded("upload")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `eligibility_actions_recorded_total{action="upload"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_BreakerStateIsOneHot(t *testing.T) {
	m := New()

	m.SetBreakerState("eligibility-storage", circuitbreaker.StateOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerState.WithLabelValues("eligibility-storage", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.breakerState.WithLabelValues("eligibility-storage", "closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.breakerState.WithLabelValues("eligibility-storage", "half_open")))

	m.SetBreakerState("eligibility-storage", circuitbreaker.StateHalfOpen)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.breakerState.WithLabelValues("eligibility-storage", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerState.WithLabelValues("eligibility-storage", "half_open")))
}
