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

func TestCollectorRecord(t *testing.T) {
	c := New()
	c.Record(http.MethodGet, 200, 15*time.Millisecond)
	c.Record(http.MethodGet, 200, 5*time.Millisecond)
	c.Record(http.MethodPost, 429, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.requests.WithLabelValues("POST", "429")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rateLimited))
}

func TestCollectorDomainCounters(t *testing.T) {
	c := New()
	c.RecordAccrual(3, 1, 2, 0)
	c.RecordLeaveEvent("approved")
	c.RecordImport("completed", 10, 2, 1)

	assert.Equal(t, float64(3), testutil.ToFloat64(c.accrualEntries.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.leaveTransitions.WithLabelValues("approved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.imports.WithLabelValues("completed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.importRecords.WithLabelValues("unmatched")))
}

func TestCollectorHandler(t *testing.T) {
	c := New()
	c.RecordLeaveEvent("submitted")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `workforce_leave_request_events_total{event="submitted"} 1`))
}
