package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Submission("anchored")
	m.Submission("anchored")
	m.Submission("anchor_failed")
	m.BlockScanned()
	m.Resolve("found")
	m.SetComponentUp("ledger", true)
	m.SetComponentUp("content_store", false)
	m.ObserveConfirm("confirmed", 1500*time.Millisecond)
	m.ObserveRequest("GET", "/health", "200", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("anchored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("anchor_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blocksScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.componentUp.WithLabelValues("ledger")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.componentUp.WithLabelValues("content_store")))

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "anchor_pipeline_submissions_total"))
	assert.True(t, strings.Contains(body, "anchor_ledger_confirm_seconds_bucket"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Submission("x")
		m.TxSent("x")
		m.ObserveConfirm("x", time.Second)
		m.BlockScanned()
		m.Resolve("x")
		m.SetComponentUp("x", true)
		m.ObserveRequest("GET", "/", "200", time.Second)
	})
}
