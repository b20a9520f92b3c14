// Package pump drives the render client through a pose sequence and feeds
// decoded frames into the bounded queue the pipeline drains.
package pump

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/terrain-data/feature.track/internal/flight"
	"github.com/terrain-data/feature.track/internal/frames"
	"github.com/terrain-data/feature.track/internal/pangu"
)

// backpressurePollInterval is how long the pump sleeps before re-checking
// a queue that sits at its high-water mark.
const backpressurePollInterval = 50 * time.Millisecond

// Config holds the parameters of one pump session.
type Config struct {
	Addr        string        // render server address
	DialTimeout time.Duration // TCP connect timeout
	Poses       []flight.Pose // pose sequence, iterated once in order
	MaxFrames   int           // per-run cap on frames rendered
	Queue       *frames.Queue // destination queue (pump is its only producer)
}

// Pump owns the render client session for one run. The pump goroutine is
// the only toucher of the client and of any in-flight render buffer;
// everything it shares with the pipeline goes through the queue.
type Pump struct {
	cfg Config

	client      *pangu.Client
	imageOffset int
	imageWidth  uint32
	imageHeight uint32
	cancelled   atomic.Bool
	runErr      error
	wg          sync.WaitGroup
}

// New creates a pump for one run.
func New(cfg Config) *Pump {
	return &Pump{cfg: cfg}
}

// Start opens the session, probes the camera and the image header layout,
// and launches the render loop. It returns synchronously with any session
// setup error; render-loop errors are reported by Wait.
func (p *Pump) Start() error {
	client, err := pangu.Dial(p.cfg.Addr, p.cfg.DialTimeout)
	if err != nil {
		return err
	}
	p.client = client

	props, err := client.GetCameraProperties(0)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to query camera properties: %w", err)
	}
	if props == nil {
		client.Close()
		return fmt.Errorf("render server reports no camera 0")
	}
	p.imageWidth = props.Width
	p.imageHeight = props.Height

	// One probe render determines where pixel data begins; the offset is
	// stable for the whole session. The probe frame is discarded.
	probe, err := client.GetImage()
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to fetch probe image: %w", err)
	}
	p.imageOffset = frames.HeaderOffset(probe)

	p.wg.Add(1)
	go p.run()
	return nil
}

// ImageSize returns the camera dimensions learned at session start.
func (p *Pump) ImageSize() (width, height int) {
	return int(p.imageWidth), int(p.imageHeight)
}

// ImageOffset returns the probed byte offset of pixel data within a frame.
func (p *Pump) ImageOffset() int {
	return p.imageOffset
}

// Cancel requests the render loop to stop after the socket operation in
// flight returns. Safe to call from any goroutine, repeatedly.
func (p *Pump) Cancel() {
	p.cancelled.Store(true)
}

// Wait blocks until the render loop has exited and the session is torn
// down, then reports the loop's status. Buffers still on the queue are
// drained and released so a cancelled run leaks nothing.
func (p *Pump) Wait() error {
	p.wg.Wait()
	for p.cfg.Queue.TryDequeue() != nil {
	}
	return p.runErr
}

// run executes the pose sequence. Rendering is expensive, so when the
// queue rejects a finished frame the buffer is retained and re-offered on
// the next iteration instead of re-rendering.
func (p *Pump) run() {
	defer p.wg.Done()
	defer func() {
		if err := p.client.Close(); err != nil {
			log.Printf("pump: session close failed: %v", err)
		}
	}()

	maxFrames := p.cfg.MaxFrames
	if maxFrames > len(p.cfg.Poses) || maxFrames <= 0 {
		maxFrames = len(p.cfg.Poses)
	}

	var pending *frames.FrameBuffer
	for idx := 0; idx < maxFrames; {
		// Hold off while the queue sits at its high-water mark.
		for !p.cancelled.Load() && p.cfg.Queue.SizeApprox() >= p.cfg.Queue.Capacity() {
			time.Sleep(backpressurePollInterval)
		}
		if p.cancelled.Load() {
			return
		}

		if pending == nil {
			pose := p.cfg.Poses[idx]
			if err := p.client.SetViewpointByDegreesD(pose.X, pose.Y, pose.Z, pose.Yaw, pose.Pitch, pose.Roll); err != nil {
				p.runErr = fmt.Errorf("failed to set viewpoint for pose %d: %w", idx, err)
				return
			}
			data, err := p.client.GetImage()
			if err != nil {
				p.runErr = fmt.Errorf("failed to render pose %d: %w", idx, err)
				return
			}
			pending = frames.NewFrameBuffer(idx, data, p.imageOffset)
		}

		if p.cfg.Queue.TryEnqueue(pending) {
			pending = nil
			idx++
		}
	}
}
