package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("loan", "approve", OutcomeOK))
	RecordTransition("loan", "approve", OutcomeOK)
	after := testutil.ToFloat64(transitions.WithLabelValues("loan", "approve", OutcomeOK))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordFine("DAMAGE")
	ObserveRequest("get", http.StatusOK, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `library_lending_fines_issued_total{type="DAMAGE"}`))
	assert.True(t, strings.Contains(body, `library_http_requests_total{method="GET",status="200"}`))
	assert.True(t, strings.Contains(body, "library_http_request_duration_seconds_bucket"))
}
