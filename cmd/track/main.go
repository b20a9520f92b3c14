// Command track runs the dual detection-and-tracking pipeline over a
// flight file against a render server, without the HTTP surface. Results
// are printed and optionally persisted to the run database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/terrain-data/feature.track/internal/config"
	"github.com/terrain-data/feature.track/internal/controller"
	"github.com/terrain-data/feature.track/internal/pangu"
	"github.com/terrain-data/feature.track/internal/runstore"
	"github.com/terrain-data/feature.track/internal/vision"
)

var (
	flightFile = flag.String("flight", "", "Flight (pose sequence) file (required)")
	serverAddr = flag.String("server", pangu.DefaultServerAddr, "Render server address")
	tuningFile = flag.String("tuning", "", "Optional tuning config JSON")
	dbFile     = flag.String("db", "", "Optional run database to record results into")
	devMode    = flag.Bool("dev", false, "Run against an in-process mock render server")
	maxFrames  = flag.Int("max-frames", 0, "Cap on frames per run (0 = tuning default)")
)

func main() {
	flag.Parse()

	if *flightFile == "" {
		fmt.Fprintln(os.Stderr, "-flight is required")
		os.Exit(2)
	}

	tuning := config.EmptyTuningConfig()
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	addr := *serverAddr
	if *devMode {
		mock, err := pangu.NewMockServer(vision.ImageWidth, vision.ImageHeight)
		if err != nil {
			log.Fatalf("failed to start mock render server: %v", err)
		}
		defer mock.Close()
		addr = mock.Addr()
	}

	var store *runstore.DB
	if *dbFile != "" {
		var err error
		store, err = runstore.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open run database: %v", err)
		}
		defer store.Close()
	}

	frames := tuning.GetMaxFrames()
	if *maxFrames > 0 {
		frames = *maxFrames
	}

	done := make(chan controller.Report, 1)
	ctrl := controller.New(controller.Sink{
		RunFinished: func(r controller.Report) { done <- r },
	})
	ctrl.SetPoseFile(*flightFile)

	err := ctrl.Start(controller.RunConfig{
		Settings:       tuning.Settings(),
		MaxFrames:      frames,
		QueueCapacity:  tuning.GetQueueCapacity(),
		ServerAddr:     addr,
		DialTimeout:    tuning.GetDialTimeout(),
		DequeueTimeout: tuning.GetDequeueTimeout(),
	})
	if err != nil {
		log.Fatalf("failed to start run: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var report controller.Report
	select {
	case report = <-done:
	case <-sig:
		log.Print("interrupted, stopping run...")
		ctrl.Stop()
		report = <-done
	}

	for _, pass := range []controller.EngineReport{report.CPU, report.Accelerated} {
		if pass.Err != nil {
			log.Printf("%s pass aborted: %v", pass.Engine, pass.Err)
			continue
		}
		avg := 0.0
		if pass.Frames > 0 {
			avg = pass.Times.TotalMS / float64(pass.Frames)
		}
		fmt.Printf("%-12s frames=%-5d avg=%.2fms max=%.2fms total=%.2fs\n",
			pass.Engine, pass.Frames, avg, pass.Times.MaxMS, pass.Times.TotalMS/1000)
	}

	if store != nil {
		for _, pass := range []controller.EngineReport{report.CPU, report.Accelerated} {
			if pass.Engine == "" {
				continue
			}
			if _, err := store.RecordRun(pass.Engine, pass.Times.FrameMS, pass.Times.TotalMS, pass.Times.MaxMS, report.Started, report.Finished, pass.Err); err != nil {
				log.Printf("failed to record %s run: %v", pass.Engine, err)
			}
		}
	}
}
