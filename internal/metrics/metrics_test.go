package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "/api/v1/admin/applications/:id/transition", Endpoint("/api/v1/admin/applications/42/transition"))
	assert.Equal(t, "/api/v1/blog/visa-guide-2024", Endpoint("/api/v1/blog/visa-guide-2024"))
	assert.Equal(t, "/health", Endpoint("/health"))
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(transitionsTotal.WithLabelValues("application", "pending", "under-review"))
	RecordTransition("application", "pending", "under-review")
	assert.Equal(t, before+1, testutil.ToFloat64(transitionsTotal.WithLabelValues("application", "pending", "under-review")))

	before = testutil.ToFloat64(notificationsTotal.WithLabelValues("email", "failure"))
	RecordNotification("email", errors.New("down"))
	assert.Equal(t, before+1, testutil.ToFloat64(notificationsTotal.WithLabelValues("email", "failure")))
}

func TestPrometheusMiddlewareRecordsStatus(t *testing.T) {
	h := PrometheusMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/admin/inquiries/:id", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/inquiries/7", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
