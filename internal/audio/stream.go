// Package audio connects a SampleSource to a sound device.
package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// SampleSource fills dst with interleaved stereo float32 frames. It is
// called from the device's audio goroutine.
type SampleSource interface {
	Process(dst []float32)
}

// BytesPerFrame is one stereo float32 frame.
const BytesPerFrame = 8

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream the device players pull from.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

// NewStreamReader preallocates room for framesHint frames so steady-state
// reads do not allocate.
func NewStreamReader(source SampleSource, framesHint int) *StreamReader {
	return &StreamReader{source: source, buf: make([]float32, 0, framesHint*2)}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / BytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * BytesPerFrame, nil
}

func (r *StreamReader) Close() error { return nil }
