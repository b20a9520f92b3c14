// Command analysis summarises recorded runs and optionally exports a PNG
// plot of per-frame processing times for the latest run of each engine.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/terrain-data/feature.track/internal/controller"
	"github.com/terrain-data/feature.track/internal/monitor"
	"github.com/terrain-data/feature.track/internal/runstore"
)

var (
	dbFile  = flag.String("db", "runs.db", "Run database path")
	limit   = flag.Int("limit", 20, "Number of recent runs to list")
	plotOut = flag.String("plot", "", "Write a PNG timings plot to this path")
)

func main() {
	flag.Parse()

	store, err := runstore.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open run database: %v", err)
	}
	defer store.Close()

	runs, err := store.Runs(*limit)
	if err != nil {
		log.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		os.Exit(0)
	}

	fmt.Printf("%-36s  %-12s  %6s  %9s  %9s\n", "RUN", "ENGINE", "FRAMES", "AVG MS", "MAX MS")
	for _, r := range runs {
		avg := 0.0
		if r.Frames > 0 {
			avg = r.TotalMS / float64(r.Frames)
		}
		fmt.Printf("%-36s  %-12s  %6d  %9.2f  %9.2f\n", r.RunID, r.Engine, r.Frames, avg, r.MaxMS)
	}

	fmt.Println()
	for _, engine := range []string{controller.EngineCPU, controller.EngineAccelerated} {
		run, err := store.LatestRunByEngine(engine)
		if err != nil {
			log.Fatalf("failed to query latest %s run: %v", engine, err)
		}
		if run == nil {
			continue
		}
		times, err := store.FrameTimes(run.RunID)
		if err != nil {
			log.Fatalf("failed to load frame times: %v", err)
		}
		s := monitor.Summarize(engine, times)
		fmt.Printf("%-12s mean=%.2fms p50=%.2fms p95=%.2fms max=%.2fms over %d frames\n",
			engine, s.MeanMS, s.P50MS, s.P95MS, s.MaxMS, s.Frames)
	}

	if *plotOut != "" {
		if err := writeTimingsPlot(store, *plotOut); err != nil {
			log.Fatalf("failed to write plot: %v", err)
		}
		log.Printf("wrote %s", *plotOut)
	}
}

// writeTimingsPlot renders per-frame times of the latest run of each
// engine as line series.
func writeTimingsPlot(store *runstore.DB, path string) error {
	p := plot.New()
	p.Title.Text = "Frame timings"
	p.X.Label.Text = "Frame number"
	p.Y.Label.Text = "Frame time (ms)"

	plotted := 0
	for _, engine := range []string{controller.EngineCPU, controller.EngineAccelerated} {
		run, err := store.LatestRunByEngine(engine)
		if err != nil {
			return err
		}
		if run == nil {
			continue
		}
		times, err := store.FrameTimes(run.RunID)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, len(times))
		for i, ms := range times {
			pts[i].X = float64(i + 1)
			pts[i].Y = ms
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add(engine, line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no recorded runs to plot")
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
