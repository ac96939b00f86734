package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"cutvalid/domain/delta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.FileProcessed(StatusOK, 10*time.Millisecond)
	m.FileProcessed(StatusOK, 20*time.Millisecond)
	m.FileProcessed(StatusFailed, time.Millisecond)
	m.Warnings(3)
	done := m.RunStarted()

	body := scrape(t, m)
	assert.Contains(t, body, `cutvalid_files_processed_total{status="ok"} 2`)
	assert.Contains(t, body, `cutvalid_files_processed_total{status="failed"} 1`)
	assert.Contains(t, body, "cutvalid_domain_warnings_total 3")
	assert.Contains(t, body, "cutvalid_file_duration_seconds_count 3")
	assert.Contains(t, body, "cutvalid_runs_active 1")

	done()
	assert.Contains(t, scrape(t, m), "cutvalid_runs_active 0")
}

func TestHandlerExposesHistogram(t *testing.T) {
	m := New()
	m.ObserveChiSquared(delta.Center, 4.2)

	assert.Contains(t, scrape(t, m), `cutvalid_par_vs_cut_chi2_count{direction="center"} 1`)
}

func TestRequestCounter(t *testing.T) {
	m := New()
	m.Request("/api/runs", 200)
	m.Request("/api/runs", 200)
	m.Request("/api/runs/{runID}/files", 404)

	body := scrape(t, m)
	assert.Contains(t, body, `cutvalid_http_requests_total{code="200",route="/api/runs"} 2`)
	assert.Contains(t, body, `cutvalid_http_requests_total{code="404",route="/api/runs/{runID}/files"} 1`)
}
