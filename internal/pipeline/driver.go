// Package pipeline drains the frame queue through a detection-and-tracking
// engine, one frame at a time, and reports annotated frames with their
// processing times to a display sink.
package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/terrain-data/feature.track/internal/frames"
	"github.com/terrain-data/feature.track/internal/vision"
)

// DequeueTimeout bounds the wait for the next frame. A timeout is treated
// as end of stream, not retried: if the pump died, this is how the
// pipeline finds out.
const DequeueTimeout = 5 * time.Second

// FrameResult is what the driver hands the display sink for every
// processed frame. The annotated buffer is only valid inside the sink
// callback; the driver reuses it for the next frame.
type FrameResult struct {
	Seq       int           // pose index of the frame
	Frame     int           // 1-based count within this run
	Tracks    int           // live tracks after this frame
	Annotated []byte        // W*H*3 interleaved BGR
	Elapsed   time.Duration // detector+tracker wall time
}

// Sink receives per-frame results. Called from the pipeline goroutine.
type Sink func(FrameResult)

// Times aggregates the processing measurements of one run.
type Times struct {
	FrameMS []float64 // per-frame detector+tracker milliseconds
	TotalMS float64
	MaxMS   float64
}

// Driver runs one engine over the frame stream of one run.
type Driver struct {
	queue     *frames.Queue
	engine    vision.Engine
	annotator *vision.Annotator
	pen       vision.Colour
	sink      Sink
	timeout   time.Duration
	cancelled atomic.Bool
}

// NewDriver wires a driver to its queue, engine and sink. The driver does
// not know or care which engine variant it is running.
func NewDriver(queue *frames.Queue, engine vision.Engine, annotator *vision.Annotator, pen vision.Colour, sink Sink) *Driver {
	return &Driver{
		queue:     queue,
		engine:    engine,
		annotator: annotator,
		pen:       pen,
		sink:      sink,
		timeout:   DequeueTimeout,
	}
}

// SetTimeout overrides the dequeue timeout; zero keeps the default.
func (d *Driver) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

// Cancel makes the loop exit at the next dequeue, item or timeout.
func (d *Driver) Cancel() {
	d.cancelled.Store(true)
}

// Run consumes frames until the stream ends (dequeue timeout) or the
// driver is cancelled, and returns the run's timing record. Each frame is
// fully processed before the next is dequeued, so frames are handled
// strictly in pose order.
func (d *Driver) Run() Times {
	var times Times
	frame := 0
	for {
		if d.cancelled.Load() {
			return times
		}
		fb := d.queue.DequeueTimed(d.timeout)
		if fb == nil || d.cancelled.Load() {
			return times
		}
		frame++

		pixels := fb.Pixels()
		start := time.Now()
		tracks := d.engine.Process(pixels)
		elapsed := time.Since(start)

		ms := float64(elapsed.Microseconds()) / 1000.0
		times.FrameMS = append(times.FrameMS, ms)
		times.TotalMS += ms
		if ms > times.MaxMS {
			times.MaxMS = ms
		}

		if d.sink != nil {
			annotated := d.annotator.Annotate(pixels, tracks, d.pen)
			d.sink(FrameResult{
				Seq:       fb.Seq,
				Frame:     frame,
				Tracks:    len(tracks),
				Annotated: annotated,
				Elapsed:   elapsed,
			})
		}
		// The frame buffer is dropped here; the driver is its last owner.
	}
}
