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

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	before := testutil.ToFloat64(transitions.WithLabelValues("Initiated", "SUBMIT", "ok"))
	r.RecordTransition("Initiated", "SUBMIT", true)
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("Initiated", "SUBMIT", "ok")))

	before = testutil.ToFloat64(observerFailures.WithLabelValues("claim.submitted"))
	r.RecordObserverFailure("claim.submitted")
	assert.Equal(t, before+1, testutil.ToFloat64(observerFailures.WithLabelValues("claim.submitted")))

	before = testutil.ToFloat64(janitorRemoved.WithLabelValues("removed"))
	r.RecordJanitorRun(3, 0)
	assert.Equal(t, before+3, testutil.ToFloat64(janitorRemoved.WithLabelValues("removed")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	NewRecorder().RecordUpload("ok", 2048)
	RecordHTTPRequest("GET", "/api/claims", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "claims_attachments_uploads_total")
	assert.Contains(t, body, "claims_http_requests_total")
	assert.Contains(t, body, `route="/api/claims"`)
}
