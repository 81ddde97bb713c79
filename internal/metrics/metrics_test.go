package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ReloadApplied(true)
	m.ReloadFailed(false)
	m.ReloadDiscarded()
	m.Mutation("create_category", nil)
	assert.NoError(t, m.WriteTextfile("/nonexistent/ignored"))
	assert.Equal(t, http.DefaultTransport, m.InstrumentTransport(nil))
}

func TestSessionCounters(t *testing.T) {
	m := New()
	m.ReloadApplied(false)
	m.ReloadApplied(true)
	m.ReloadApplied(true)
	m.ReloadDiscarded()
	m.Mutation("delete_budget", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues("full", "applied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reloads.WithLabelValues("silent", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleReloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("delete_budget", "error")))
}

func TestInstrumentTransportCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	m := New()
	client := &http.Client{Transport: m.InstrumentTransport(nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("418", "get")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "simplebudget_api_requests_total"))
}
