package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAuthEvent(t *testing.T) {
	m := New()

	m.RecordAuthEvent("login", "success")
	m.RecordAuthEvent("login", "failure")
	m.RecordAuthEvent("login", "failure")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "failure")))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Patch("/api/v1/users/resetPassword/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/users/resetPassword/secret-token", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `route="/api/v1/users/resetPassword/{token}"`)
	assert.Contains(t, body, `status="400"`)
	assert.False(t, strings.Contains(body, "secret-token"))
}

func TestHandler_ExposesRuntimeMetrics(t *testing.T) {
	m := New()
	m.RecordAuthEvent("signup", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), `natours_auth_events_total{event="signup",outcome="success"} 1`)
}
