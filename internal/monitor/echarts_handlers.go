package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/terrain-data/feature.track/internal/controller"
)

// Series colours matching the pen colours drawn onto annotated frames.
const (
	cpuSeriesColour         = "#FFC800"
	acceleratedSeriesColour = "#07FF23"
)

// handleTimingsChart renders a quick line chart (HTML) of per-frame
// processing times for the latest run of each engine using go-echarts.
// This is a debugging-only endpoint to compare the two pipelines without
// a frontend.
func (ws *WebServer) handleTimingsChart(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no run store configured")
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Frame timings", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Frame timings", Subtitle: "detector+tracker wall time per frame"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame number"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frame time (ms)", Type: "log"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	var frames int
	series := []struct {
		engine string
		colour string
	}{
		{controller.EngineCPU, cpuSeriesColour},
		{controller.EngineAccelerated, acceleratedSeriesColour},
	}
	plotted := 0
	for _, s := range series {
		run, err := ws.store.LatestRunByEngine(s.engine)
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
		if len(times) > frames {
			frames = len(times)
		}
		data := make([]opts.LineData, 0, len(times))
		for _, ms := range times {
			data = append(data, opts.LineData{Value: ms})
		}
		line.AddSeries(s.engine, data, charts.WithLineStyleOpts(opts.LineStyle{Color: s.colour, Width: 2}))
		plotted++
	}

	if plotted == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no recorded runs to chart")
		return
	}

	labels := make([]string, frames)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i+1)
	}
	line.SetXAxis(labels)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
