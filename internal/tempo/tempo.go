package tempo

import (
	"math"
	"sync"
	"time"
)

const (
	MinBPM     = 20.0
	MaxBPM     = 999.0
	DefaultBPM = 120.0

	// maxTaps is the size of the rolling tap window.
	maxTaps = 4
	// firstTapTimeout clears a lone tap if no second tap follows (20 BPM).
	firstTapTimeout = 3000 * time.Millisecond
	// tapTimeoutScale re-arms the reset timer relative to the last interval.
	tapTimeoutScale = 1.5
)

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f once after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for tap timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithAfterFunc replaces time.AfterFunc for the tap reset timer.
func WithAfterFunc(after AfterFunc) Option {
	return func(c *Controller) {
		c.afterFunc = after
	}
}

// Controller owns the tempo. It is safe for concurrent use; the tap reset
// timer fires on its own goroutine.
type Controller struct {
	mu        sync.Mutex
	bpm       float64
	taps      []time.Time
	timer     Timer
	timerGen  uint64
	now       func() time.Time
	afterFunc AfterFunc
}

// New returns a controller at DefaultBPM.
func New(opts ...Option) *Controller {
	c := &Controller{
		bpm:  DefaultBPM,
		taps: make([]time.Time, 0, maxTaps),
		now:  time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClampBPM normalises bpm into [MinBPM, MaxBPM].
func ClampBPM(bpm float64) float64 {
	if math.IsNaN(bpm) || bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// SetBPM stores bpm clamped to [MinBPM, MaxBPM].
func (c *Controller) SetBPM(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bpm = ClampBPM(bpm)
}

func (c *Controller) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// IntervalSeconds is the length of one beat in seconds.
func (c *Controller) IntervalSeconds() float64 {
	return 60.0 / c.BPM()
}

// SamplesPerBeat converts one beat to a sample count at sampleRate.
func (c *Controller) SamplesPerBeat(sampleRate float64) float64 {
	return sampleRate * c.IntervalSeconds()
}

// Tap records a tap. From the second tap on, the tempo follows the latest
// inter-tap interval; the returned bool reports whether the BPM changed.
// The tap history is cleared when no further tap arrives in time.
func (c *Controller) Tap() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.taps) == 0 {
		c.armLocked(firstTapTimeout)
	}
	if len(c.taps) >= maxTaps {
		copy(c.taps, c.taps[1:])
		c.taps = c.taps[:len(c.taps)-1]
	}
	c.taps = append(c.taps, c.now())

	if len(c.taps) < 2 {
		return c.bpm, false
	}
	last := c.taps[len(c.taps)-1]
	prev := c.taps[len(c.taps)-2]
	delta := last.Sub(prev)
	if delta <= 0 {
		return c.bpm, false
	}
	c.bpm = ClampBPM(60.0 / delta.Seconds())
	c.armLocked(time.Duration(float64(delta) * tapTimeoutScale))
	return c.bpm, true
}

// TapCount returns the number of taps in the current sequence.
func (c *Controller) TapCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.taps)
}

// ResetTaps clears the tap history and cancels the pending reset timer.
func (c *Controller) ResetTaps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.taps = c.taps[:0]
}

// armLocked cancels any pending reset and schedules a new one. A callback that
// already started for an older generation finds timerGen moved on and returns.
func (c *Controller) armLocked(d time.Duration) {
	c.cancelLocked()
	gen := c.timerGen
	c.timer = c.afterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.timerGen != gen {
			return
		}
		c.taps = c.taps[:0]
		c.timer = nil
	})
}

func (c *Controller) cancelLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
