package pipeline

import (
	"testing"
	"time"

	"github.com/terrain-data/feature.track/internal/frames"
	"github.com/terrain-data/feature.track/internal/vision"
)

const (
	testWidth  = 64
	testHeight = 48
)

// countingEngine records the frames it was fed.
type countingEngine struct {
	frames [][]byte
}

func (e *countingEngine) Process(pixels []byte) []*vision.Track {
	copied := make([]byte, len(pixels))
	copy(copied, pixels)
	e.frames = append(e.frames, copied)
	return nil
}

func enqueueTestFrame(q *frames.Queue, seq int, fill byte) {
	data := append([]byte("hdr\nhdr\n"), make([]byte, testWidth*testHeight)...)
	for i := 8; i < len(data); i++ {
		data[i] = fill
	}
	q.TryEnqueue(frames.NewFrameBuffer(seq, data, 8))
}

func TestDriverProcessesInOrder(t *testing.T) {
	queue := frames.NewQueue(8)
	for i := 0; i < 5; i++ {
		enqueueTestFrame(queue, i, byte(i))
	}

	engine := &countingEngine{}
	var results []FrameResult
	driver := NewDriver(queue, engine, vision.NewAnnotator(testWidth, testHeight), vision.CPUPen, func(r FrameResult) {
		results = append(results, r)
	})

	done := make(chan Times, 1)
	go func() { done <- driver.Run() }()

	// Nothing else arrives: the driver ends at the dequeue timeout.
	var times Times
	select {
	case times = <-done:
	case <-time.After(2 * DequeueTimeout):
		t.Fatal("driver did not finish")
	}

	if len(engine.frames) != 5 {
		t.Fatalf("engine saw %d frames, want 5", len(engine.frames))
	}
	for i, f := range engine.frames {
		if f[0] != byte(i) {
			t.Errorf("frame %d carried fill %d, want %d (reordered?)", i, f[0], i)
		}
	}
	if len(results) != 5 {
		t.Fatalf("sink saw %d results, want 5", len(results))
	}
	for i, r := range results {
		if r.Seq != i {
			t.Errorf("result %d has seq %d", i, r.Seq)
		}
		if r.Frame != i+1 {
			t.Errorf("result %d has frame counter %d", i, r.Frame)
		}
		if len(r.Annotated) != testWidth*testHeight*3 {
			t.Errorf("result %d annotated size = %d", i, len(r.Annotated))
		}
	}
	if len(times.FrameMS) != 5 {
		t.Errorf("recorded %d frame times, want 5", len(times.FrameMS))
	}
	if times.MaxMS > 0 && times.TotalMS < times.MaxMS {
		t.Errorf("total %v < max %v", times.TotalMS, times.MaxMS)
	}
}

func TestDriverCancel(t *testing.T) {
	queue := frames.NewQueue(1)
	engine := &countingEngine{}
	driver := NewDriver(queue, engine, vision.NewAnnotator(testWidth, testHeight), vision.CPUPen, nil)

	done := make(chan Times, 1)
	go func() { done <- driver.Run() }()

	time.Sleep(20 * time.Millisecond)
	driver.Cancel()
	enqueueTestFrame(queue, 0, 0) // unblock the dequeue wait

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelled driver did not exit")
	}
}

func TestDriverNilSink(t *testing.T) {
	queue := frames.NewQueue(2)
	enqueueTestFrame(queue, 0, 7)

	engine := &countingEngine{}
	driver := NewDriver(queue, engine, vision.NewAnnotator(testWidth, testHeight), vision.CPUPen, nil)

	done := make(chan Times, 1)
	go func() { done <- driver.Run() }()
	times := <-done
	if len(times.FrameMS) != 1 {
		t.Errorf("recorded %d frame times, want 1", len(times.FrameMS))
	}
	if len(engine.frames) != 1 {
		t.Errorf("engine saw %d frames, want 1", len(engine.frames))
	}
}
