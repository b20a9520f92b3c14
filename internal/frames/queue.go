package frames

import (
	"sync/atomic"
	"time"
)

// Queue is a bounded single-producer/single-consumer channel of owned
// frame buffers. The producer side belongs to the pump goroutine and the
// consumer side to the pipeline goroutine; no other goroutine may touch
// either end. Items emerge in insertion order and are never dropped.
type Queue struct {
	ch   chan *FrameBuffer
	size atomic.Int64
}

// NewQueue creates a queue holding at most capacity buffers.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan *FrameBuffer, capacity)}
}

// Capacity returns the fixed bound set at construction.
func (q *Queue) Capacity() int {
	return cap(q.ch)
}

// TryEnqueue offers a buffer without blocking. Returns false when the
// queue is full; the caller keeps ownership and may retry.
func (q *Queue) TryEnqueue(fb *FrameBuffer) bool {
	select {
	case q.ch <- fb:
		q.size.Add(1)
		return true
	default:
		return false
	}
}

// DequeueTimed waits up to d for a buffer. A nil result means the wait
// timed out; the consumer treats that as end of stream.
func (q *Queue) DequeueTimed(d time.Duration) *FrameBuffer {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case fb := <-q.ch:
		q.size.Add(-1)
		return fb
	case <-timer.C:
		return nil
	}
}

// TryDequeue removes a buffer without blocking. Used when draining the
// queue at shutdown.
func (q *Queue) TryDequeue() *FrameBuffer {
	select {
	case fb := <-q.ch:
		q.size.Add(-1)
		return fb
	default:
		return nil
	}
}

// SizeApprox reports the current occupancy. The value is approximate in
// the sense that it may be stale by the time the caller acts on it, which
// is all the pump's backpressure check needs.
func (q *Queue) SizeApprox() int {
	return int(q.size.Load())
}
