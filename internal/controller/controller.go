// Package controller orchestrates tracking runs: for each Start it drives
// the reference pipeline and the accelerated pipeline back to back over
// the same pose sequence, surfacing annotated frames and progress to the
// display sink and a final report when both passes finish.
package controller

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/terrain-data/feature.track/internal/flight"
	"github.com/terrain-data/feature.track/internal/frames"
	"github.com/terrain-data/feature.track/internal/pipeline"
	"github.com/terrain-data/feature.track/internal/pump"
	"github.com/terrain-data/feature.track/internal/vision"
)

// EngineCPU and EngineAccelerated name the two pipeline variants of a
// dual run. The accelerated variant resolves through the engine registry
// and degrades to a second reference pass when no accelerated build is
// present.
const (
	EngineCPU         = "cpu"
	EngineAccelerated = "accelerated"
)

// RunConfig carries everything one Start needs.
type RunConfig struct {
	Settings       vision.Settings
	MaxFrames      int
	QueueCapacity  int
	ServerAddr     string
	DialTimeout    time.Duration
	DequeueTimeout time.Duration // zero keeps the pipeline default
}

// Sink receives display events. Callbacks are invoked from the run
// goroutine; nil callbacks are skipped.
type Sink struct {
	// FrameReady delivers an annotated frame plus both progress
	// percentages. The buffer is reused; copy it to retain it.
	FrameReady func(annotated []byte, cpuPercent, acceleratedPercent int)
	// RunFinished delivers the final report once both passes are done or
	// the run was stopped or aborted.
	RunFinished func(Report)
}

// EngineReport is the outcome of one pipeline pass.
type EngineReport struct {
	Engine string
	Frames int
	Times  pipeline.Times
	Err    error // session error that aborted the pass, if any
}

// Report is the outcome of a dual run.
type Report struct {
	CPU         EngineReport
	Accelerated EngineReport
	Started     time.Time
	Finished    time.Time
}

// Controller owns the run lifecycle. One run is active at a time.
type Controller struct {
	mu       sync.Mutex
	poseFile string
	running  bool
	stopping bool

	activePump   *pump.Pump
	activeDriver *pipeline.Driver
	done         chan struct{}

	sink Sink

	// Progress counters, read by the monitor.
	progressMu  sync.Mutex
	cpuFrame    int
	accFrame    int
	totalFrames int
	lastReport  *Report
}

// New creates a controller reporting to the given sink.
func New(sink Sink) *Controller {
	return &Controller{sink: sink}
}

// SetPoseFile sets the flight file the next run iterates.
func (c *Controller) SetPoseFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poseFile = path
}

// Progress returns the per-engine progress percentages of the active run.
func (c *Controller) Progress() (cpuPercent, acceleratedPercent int) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	if c.totalFrames == 0 {
		return 0, 0
	}
	return c.cpuFrame * 100 / c.totalFrames, c.accFrame * 100 / c.totalFrames
}

// LastReport returns the report of the most recently finished run, or nil.
func (c *Controller) LastReport() *Report {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	return c.lastReport
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start validates the configuration, loads the pose sequence and launches
// the dual run. Configuration errors are returned synchronously with no
// side effects; session errors abort the run asynchronously and are
// carried in the report.
func (c *Controller) Start(cfg RunConfig) error {
	if err := cfg.Settings.Validate(); err != nil {
		return err
	}
	if cfg.MaxFrames < 1 {
		return fmt.Errorf("max_frames must be >= 1, got %d", cfg.MaxFrames)
	}
	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1, got %d", cfg.QueueCapacity)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("a run is already active")
	}
	poseFile := c.poseFile
	c.mu.Unlock()

	if poseFile == "" {
		return fmt.Errorf("no pose file configured")
	}
	poses, err := flight.ReadPoses(poseFile)
	if err != nil {
		return err
	}
	if len(poses) == 0 {
		return fmt.Errorf("pose file %s contains no poses", poseFile)
	}

	maxFrames := cfg.MaxFrames
	if maxFrames > len(poses) {
		maxFrames = len(poses)
	}

	c.mu.Lock()
	c.running = true
	c.stopping = false
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.progressMu.Lock()
	c.cpuFrame = 0
	c.accFrame = 0
	c.totalFrames = maxFrames
	c.progressMu.Unlock()

	go c.run(cfg, poses, maxFrames)
	return nil
}

// Stop cancels the active run and blocks until it has wound down. Calling
// Stop with no active run is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	if c.activePump != nil {
		c.activePump.Cancel()
	}
	if c.activeDriver != nil {
		c.activeDriver.Cancel()
	}
	done := c.done
	c.mu.Unlock()

	<-done
}

// run executes both pipeline passes and reports.
func (c *Controller) run(cfg RunConfig, poses []flight.Pose, maxFrames int) {
	report := Report{Started: time.Now()}

	report.CPU = c.runEngine(EngineCPU, cfg, poses, maxFrames)
	report.Accelerated = c.runEngine(EngineAccelerated, cfg, poses, maxFrames)
	report.Finished = time.Now()

	c.progressMu.Lock()
	c.lastReport = &report
	c.progressMu.Unlock()

	c.mu.Lock()
	c.running = false
	c.activePump = nil
	c.activeDriver = nil
	close(c.done)
	c.mu.Unlock()

	if c.sink.RunFinished != nil {
		c.sink.RunFinished(report)
	}
}

// runEngine performs one pipeline pass with the named engine variant.
func (c *Controller) runEngine(name string, cfg RunConfig, poses []flight.Pose, maxFrames int) EngineReport {
	result := EngineReport{Engine: name}

	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return result
	}
	c.mu.Unlock()

	queue := frames.NewQueue(cfg.QueueCapacity)
	framePump := pump.New(pump.Config{
		Addr:        cfg.ServerAddr,
		DialTimeout: cfg.DialTimeout,
		Poses:       poses,
		MaxFrames:   maxFrames,
		Queue:       queue,
	})
	if err := framePump.Start(); err != nil {
		log.Printf("controller: %s pass aborted: %v", name, err)
		result.Err = err
		return result
	}

	width, height := framePump.ImageSize()
	engine := vision.NewEngine(name, width, height, cfg.Settings)
	annotator := vision.NewAnnotator(width, height)
	pen := vision.CPUPen
	if name != EngineCPU {
		pen = vision.AcceleratedPen
	}

	driver := pipeline.NewDriver(queue, engine, annotator, pen, func(r pipeline.FrameResult) {
		c.progressMu.Lock()
		if name == EngineCPU {
			c.cpuFrame = r.Frame
		} else {
			c.accFrame = r.Frame
		}
		cpuPct := 0
		accPct := 0
		if c.totalFrames > 0 {
			cpuPct = c.cpuFrame * 100 / c.totalFrames
			accPct = c.accFrame * 100 / c.totalFrames
		}
		c.progressMu.Unlock()

		if c.sink.FrameReady != nil {
			c.sink.FrameReady(r.Annotated, cpuPct, accPct)
		}
	})
	driver.SetTimeout(cfg.DequeueTimeout)

	c.mu.Lock()
	c.activePump = framePump
	c.activeDriver = driver
	stopping := c.stopping
	c.mu.Unlock()
	if stopping {
		// Stop raced with pass startup; wind down before the loop starts.
		framePump.Cancel()
		driver.Cancel()
	}

	result.Times = driver.Run()
	result.Frames = len(result.Times.FrameMS)

	framePump.Cancel()
	if err := framePump.Wait(); err != nil {
		log.Printf("controller: %s pump ended with error: %v", name, err)
		result.Err = err
	}
	return result
}
