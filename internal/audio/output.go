package audio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend selects the device library.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
)

// DefaultBufferSize is the oto device buffer when none is configured.
const DefaultBufferSize = 40 * time.Millisecond

var ErrUnknownBackend = errors.New("audio: unknown backend")

// ParseBackend accepts a backend name in any case; empty selects ebiten.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendEbiten, nil
	case BackendEbiten, BackendOto:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Output is a running device stream.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Options configure Open.
type Options struct {
	Backend    Backend
	SampleRate int
	// BufferSize is the device latency. Only the oto backend honours it;
	// ebiten picks its own.
	BufferSize time.Duration
}

// Open starts a paused stream pulling from source. Only one backend can be
// used per process and the first sample rate wins.
func Open(opts Options, source SampleSource) (Output, error) {
	if opts.SampleRate <= 0 {
		return nil, errors.New("audio: sample rate must be positive")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	switch opts.Backend {
	case BackendEbiten, "":
		return newEbitenOutput(opts.SampleRate, source)
	case BackendOto:
		return newOtoOutput(opts.SampleRate, opts.BufferSize, source)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

// framesFor converts a buffer duration to a frame count.
func framesFor(sampleRate int, d time.Duration) int {
	n := int(d.Seconds() * float64(sampleRate))
	if n < 64 {
		n = 64
	}
	return n
}
