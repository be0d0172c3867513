package supervisor

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/graph"
)

func TestRunMetrics_RecordRunLabelsByOutcome(t *testing.T) {
	m := newRunMetrics()
	m.recordRun(true, nil)
	m.recordRun(false, nil)
	m.recordRun(false, errors.New("boom"))

	if v := testutil.ToFloat64(m.runsTotal.WithLabelValues("done")); v != 1 {
		t.Errorf("expected 1 done run, got %v", v)
	}
	if v := testutil.ToFloat64(m.runsTotal.WithLabelValues("error")); v != 1 {
		t.Errorf("expected 1 error run, got %v", v)
	}
}

func TestStatusServer_MetricsEndpointExposesCounters(t *testing.T) {
	m := newRunMetrics()
	m.recordRun(true, nil)

	srv := newStatusServer(":0", graph.NewInMemoryCheckpointer(), &core.NoOpLogger{}, m)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "autoweb_supervisor_runs_total") {
		t.Errorf("expected counter name in scrape body, got %q", rec.Body.String())
	}
}
