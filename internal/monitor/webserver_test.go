package monitor

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/terrain-data/feature.track/internal/controller"
	"github.com/terrain-data/feature.track/internal/runstore"
)

func newTestServer(t *testing.T) (*WebServer, *runstore.DB) {
	t.Helper()
	store, err := runstore.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ws := NewWebServer(WebServerConfig{
		Controller: controller.New(controller.Sink{}),
		Store:      store,
	})
	return ws, store
}

func doRequest(t *testing.T, ws *WebServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := ws.SetupRoutes(http.NewServeMux())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	ws, _ := newTestServer(t)
	rec := doRequest(t, ws, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleStatusIdle(t *testing.T) {
	ws, _ := newTestServer(t)
	rec := doRequest(t, ws, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status struct {
		Running            bool `json:"running"`
		CPUPercent         int  `json:"cpu_percent"`
		AcceleratedPercent int  `json:"accelerated_percent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if status.Running {
		t.Error("idle controller reported running")
	}
	if status.CPUPercent != 0 || status.AcceleratedPercent != 0 {
		t.Errorf("idle progress = %d/%d", status.CPUPercent, status.AcceleratedPercent)
	}
}

func TestHandleRuns(t *testing.T) {
	ws, store := newTestServer(t)
	store.RecordRun("cpu", []float64{1, 2}, 3, 2, time.Now(), time.Now(), nil)

	rec := doRequest(t, ws, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("have %d runs, want 1", len(runs))
	}
	if runs[0]["engine"] != "cpu" {
		t.Errorf("engine = %v", runs[0]["engine"])
	}
}

func TestHandleSummary(t *testing.T) {
	ws, store := newTestServer(t)
	store.RecordRun("cpu", []float64{1, 2, 3, 4}, 10, 4, time.Now(), time.Now(), nil)

	rec := doRequest(t, ws, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summaries []Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("have %d summaries, want 1", len(summaries))
	}
	if summaries[0].Frames != 4 {
		t.Errorf("frames = %d, want 4", summaries[0].Frames)
	}
	if math.Abs(summaries[0].MeanMS-2.5) > 1e-9 {
		t.Errorf("mean = %v, want 2.5", summaries[0].MeanMS)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("cpu", []float64{4, 1, 3, 2})
	if s.MaxMS != 4 {
		t.Errorf("max = %v, want 4", s.MaxMS)
	}
	if math.Abs(s.TotalMS-10) > 1e-9 {
		t.Errorf("total = %v, want 10", s.TotalMS)
	}
	if s.P50MS < 1 || s.P50MS > 3 {
		t.Errorf("p50 = %v, out of plausible range", s.P50MS)
	}

	empty := Summarize("cpu", nil)
	if empty.Frames != 0 || empty.MeanMS != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestHandleTimingsChart(t *testing.T) {
	ws, store := newTestServer(t)

	// No runs recorded yet.
	rec := doRequest(t, ws, "/debug/timings-chart")
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty store: status = %d, want 404", rec.Code)
	}

	store.RecordRun("cpu", []float64{1.5, 2.5}, 4, 2.5, time.Now(), time.Now(), nil)
	store.RecordRun("accelerated", []float64{0.5, 0.75}, 1.25, 0.75, time.Now(), time.Now(), nil)

	rec = doRequest(t, ws, "/debug/timings-chart")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Frame timings") {
		t.Error("chart HTML missing title")
	}
	if !strings.Contains(body, "cpu") || !strings.Contains(body, "accelerated") {
		t.Error("chart HTML missing series names")
	}
}
