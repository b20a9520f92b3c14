// Package frames carries rendered images between the pump and the pipeline:
// the owned FrameBuffer and the bounded single-producer/single-consumer
// queue that hands buffers across the thread boundary.
package frames

import (
	"bytes"

	"github.com/google/uuid"
)

// FrameBuffer is one rendered image as received from the render server: an
// opaque textual preamble followed by pixel data. Exactly one goroutine
// owns a FrameBuffer at any moment; ownership passes through the queue and
// the consumer drops the buffer after processing.
type FrameBuffer struct {
	ID     string // unique frame identifier
	Seq    int    // zero-based pose index this frame was rendered for
	Data   []byte // preamble + pixel bytes, verbatim from the server
	Offset int    // byte offset where pixel data begins
}

// NewFrameBuffer wraps raw image data received for pose index seq. The
// header offset must be supplied by the caller; the pump probes it once per
// session.
func NewFrameBuffer(seq int, data []byte, offset int) *FrameBuffer {
	return &FrameBuffer{
		ID:     uuid.NewString(),
		Seq:    seq,
		Data:   data,
		Offset: offset,
	}
}

// Pixels returns the pixel payload following the preamble.
func (fb *FrameBuffer) Pixels() []byte {
	if fb.Offset >= len(fb.Data) {
		return nil
	}
	return fb.Data[fb.Offset:]
}

// HeaderOffset scans raw image data for the end of its textual preamble:
// the number of bytes up to and including the second newline. Pixel data
// begins immediately after. Returns the full length when fewer than two
// newlines exist.
func HeaderOffset(data []byte) int {
	first := bytes.IndexByte(data, '\n')
	if first < 0 {
		return len(data)
	}
	second := bytes.IndexByte(data[first+1:], '\n')
	if second < 0 {
		return len(data)
	}
	return first + 1 + second + 1
}
