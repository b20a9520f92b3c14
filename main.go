package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/terrain-data/feature.track/internal/config"
	"github.com/terrain-data/feature.track/internal/controller"
	"github.com/terrain-data/feature.track/internal/monitor"
	"github.com/terrain-data/feature.track/internal/pangu"
	"github.com/terrain-data/feature.track/internal/runstore"
	"github.com/terrain-data/feature.track/internal/version"
	"github.com/terrain-data/feature.track/internal/vision"
)

var (
	devMode    = flag.Bool("dev", false, "Run against an in-process mock render server")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "runs.db", "Run database path")
	flightFile = flag.String("flight", "", "Flight (pose sequence) file")
	tuningFile = flag.String("tuning", "", "Optional tuning config JSON")
	serverAddr = flag.String("server", pangu.DefaultServerAddr, "Render server address")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("feature.track %s", version.String())

	tuning := config.EmptyTuningConfig()
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	renderAddr := *serverAddr
	if renderAddr == pangu.DefaultServerAddr && tuning.ServerAddr != nil {
		renderAddr = tuning.GetServerAddr()
	}
	if *devMode {
		mock, err := pangu.NewMockServer(vision.ImageWidth, vision.ImageHeight)
		if err != nil {
			log.Fatalf("failed to start mock render server: %v", err)
		}
		defer mock.Close()
		renderAddr = mock.Addr()
		log.Printf("dev mode: mock render server at %s", renderAddr)
	}

	store, err := runstore.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open run database: %v", err)
	}
	defer store.Close()

	ctrl := controller.New(controller.Sink{
		RunFinished: func(r controller.Report) {
			for _, pass := range []controller.EngineReport{r.CPU, r.Accelerated} {
				if pass.Engine == "" {
					continue
				}
				_, err := store.RecordRun(pass.Engine, pass.Times.FrameMS, pass.Times.TotalMS, pass.Times.MaxMS, r.Started, r.Finished, pass.Err)
				if err != nil {
					log.Printf("failed to record %s run: %v", pass.Engine, err)
				}
			}
			log.Printf("run finished: cpu=%d frames, accelerated=%d frames", r.CPU.Frames, r.Accelerated.Frames)
		},
	})
	if *flightFile != "" {
		ctrl.SetPoseFile(*flightFile)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine: monitor surface, run control, admin routes.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		store.AttachAdminRoutes(mux)

		webserver := monitor.NewWebServer(monitor.WebServerConfig{
			Controller: ctrl,
			Store:      store,
		})
		webserver.SetupRoutes(mux)

		mux.HandleFunc("/api/run/start", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if path := r.FormValue("flight"); path != "" {
				ctrl.SetPoseFile(path)
			}
			err := ctrl.Start(controller.RunConfig{
				Settings:       tuning.Settings(),
				MaxFrames:      tuning.GetMaxFrames(),
				QueueCapacity:  tuning.GetQueueCapacity(),
				ServerAddr:     renderAddr,
				DialTimeout:    tuning.GetDialTimeout(),
				DequeueTimeout: tuning.GetDequeueTimeout(),
			})
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "started"})
		})
		mux.HandleFunc("/api/run/stop", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			ctrl.Stop()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()

	// Wind down any active run before exit so no session is left open.
	ctrl.Stop()
	log.Printf("Graceful shutdown complete")
}
