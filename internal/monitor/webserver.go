// Package monitor serves the HTTP surface of a tracking node: run status,
// progress streaming, run summaries and the frame-timings chart.
package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/terrain-data/feature.track/internal/controller"
	"github.com/terrain-data/feature.track/internal/runstore"
	"github.com/terrain-data/feature.track/internal/version"
)

// WebServer handles the HTTP interface for monitoring tracking runs. The
// owning binary mounts its routes on a mux and runs the listener itself.
type WebServer struct {
	ctrl  *controller.Controller
	store *runstore.DB
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Controller *controller.Controller
	Store      *runstore.DB
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	return &WebServer{
		ctrl:  config.Controller,
		store: config.Store,
	}
}

// SetupRoutes mounts the monitor handlers on mux and returns it.
func (ws *WebServer) SetupRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/api/health", ws.handleHealth)
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/api/summary", ws.handleSummary)
	mux.HandleFunc("/api/progress", ws.handleProgressStream)
	mux.HandleFunc("/debug/timings-chart", ws.handleTimingsChart)
	return mux
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("monitor: failed to encode response: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]string{"status": "ok", "version": version.String()})
}

// statusResponse mirrors the progress indicators of the display surface.
type statusResponse struct {
	Running            bool `json:"running"`
	CPUPercent         int  `json:"cpu_percent"`
	AcceleratedPercent int  `json:"accelerated_percent"`
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, accPct := ws.ctrl.Progress()
	ws.writeJSON(w, statusResponse{
		Running:            ws.ctrl.Running(),
		CPUPercent:         cpuPct,
		AcceleratedPercent: accPct,
	})
}

func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no run store configured")
		return
	}
	runs, err := ws.store.Runs(50)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type runJSON struct {
		RunID   string  `json:"run_id"`
		Engine  string  `json:"engine"`
		Frames  int     `json:"frames"`
		TotalMS float64 `json:"total_ms"`
		MaxMS   float64 `json:"max_frame_ms"`
		Error   string  `json:"error,omitempty"`
	}
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			RunID:   run.RunID,
			Engine:  run.Engine,
			Frames:  run.Frames,
			TotalMS: run.TotalMS,
			MaxMS:   run.MaxMS,
			Error:   run.Error,
		})
	}
	ws.writeJSON(w, out)
}

// Summary aggregates the frame-time distribution of one run.
type Summary struct {
	Engine  string  `json:"engine"`
	Frames  int     `json:"frames"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	TotalMS float64 `json:"total_ms"`
}

// Summarize computes the distribution statistics of per-frame times.
func Summarize(engine string, frameMS []float64) Summary {
	s := Summary{Engine: engine, Frames: len(frameMS)}
	if len(frameMS) == 0 {
		return s
	}
	sorted := make([]float64, len(frameMS))
	copy(sorted, frameMS)
	sort.Float64s(sorted)

	s.MeanMS = stat.Mean(sorted, nil)
	s.MaxMS = sorted[len(sorted)-1]
	s.P50MS = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95MS = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	for _, v := range sorted {
		s.TotalMS += v
	}
	return s
}

func (ws *WebServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no run store configured")
		return
	}
	var summaries []Summary
	for _, engine := range []string{controller.EngineCPU, controller.EngineAccelerated} {
		run, err := ws.store.LatestRunByEngine(engine)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if run == nil {
			continue
		}
		times, err := ws.store.FrameTimes(run.RunID)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		summaries = append(summaries, Summarize(engine, times))
	}
	ws.writeJSON(w, summaries)
}

// handleProgressStream issues Server-Side Events carrying run progress
// until the client disconnects.
func (ws *WebServer) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		ws.writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cpuPct, accPct := ws.ctrl.Progress()
			payload, _ := json.Marshal(statusResponse{
				Running:            ws.ctrl.Running(),
				CPUPercent:         cpuPct,
				AcceleratedPercent: accPct,
			})
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
