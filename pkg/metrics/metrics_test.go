package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/metrics"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.TenantLookup("hit")
	m.TenantLookup("hit")
	m.AccessDecision(false, "tenant_not_found")
	m.Invitation("redeem", "ok")

	n, err := testutil.GatherAndCount(m.Registry(),
		"xamu_tenant_lookups_total",
		"xamu_access_decisions_total",
		"xamu_invitation_operations_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/{code}/users", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nord/users", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/{code}/users"`)
	assert.NotContains(t, body, "nord")
}
