package tempo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	return s.timers[len(s.timers)-1]
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController() (*Controller, *fakeClock, *fakeScheduler) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sched := &fakeScheduler{}
	c := New(WithClock(clock.Now), WithAfterFunc(sched.AfterFunc))
	return c, clock, sched
}

func TestSetBPMClamps(t *testing.T) {
	c := New()
	cases := []struct {
		in, want float64
	}{
		{-5, MinBPM},
		{0, MinBPM},
		{19.99, MinBPM},
		{20, 20},
		{120, 120},
		{133.5, 133.5},
		{999, 999},
		{1000, MaxBPM},
		{1e9, MaxBPM},
		{math.NaN(), MinBPM},
	}
	for _, tc := range cases {
		c.SetBPM(tc.in)
		require.Equal(t, tc.want, c.BPM(), "SetBPM(%v)", tc.in)
	}
}

func TestIntervalAndSamplesPerBeat(t *testing.T) {
	c := New()
	c.SetBPM(120)
	require.InDelta(t, 0.5, c.IntervalSeconds(), 1e-12)
	require.InDelta(t, 24000, c.SamplesPerBeat(48000), 1e-9)
	c.SetBPM(60)
	require.InDelta(t, 44100, c.SamplesPerBeat(44100), 1e-9)
}

func TestTapThreeTimesAt500msGives120(t *testing.T) {
	c, clock, _ := newTestController()
	c.SetBPM(60)

	_, changed := c.Tap()
	require.False(t, changed, "a single tap has no interval")
	clock.Advance(500 * time.Millisecond)
	c.Tap()
	clock.Advance(500 * time.Millisecond)
	bpm, changed := c.Tap()
	require.True(t, changed)
	require.InDelta(t, 120, bpm, 1e-9)
	require.InDelta(t, 120, c.BPM(), 1e-9)
}

func TestTapUsesLatestInterval(t *testing.T) {
	c, clock, _ := newTestController()
	c.Tap()
	clock.Advance(1 * time.Second)
	c.Tap()
	require.InDelta(t, 60, c.BPM(), 1e-9)
	clock.Advance(250 * time.Millisecond)
	c.Tap()
	require.InDelta(t, 240, c.BPM(), 1e-9)
}

func TestTapWindowKeepsFourMostRecent(t *testing.T) {
	c, clock, _ := newTestController()
	for i := 0; i < 7; i++ {
		c.Tap()
		clock.Advance(400 * time.Millisecond)
	}
	require.Equal(t, maxTaps, c.TapCount())
	require.InDelta(t, 150, c.BPM(), 1e-9)
}

func TestTapResultIsClamped(t *testing.T) {
	c, clock, _ := newTestController()
	c.Tap()
	clock.Advance(10 * time.Millisecond)
	bpm, _ := c.Tap()
	require.Equal(t, MaxBPM, bpm)
}

func TestTapArmsResetTimer(t *testing.T) {
	c, clock, sched := newTestController()
	c.Tap()
	require.Len(t, sched.timers, 1)
	require.Equal(t, firstTapTimeout, sched.last().d)

	clock.Advance(600 * time.Millisecond)
	c.Tap()
	require.Len(t, sched.timers, 2)
	require.True(t, sched.timers[0].stopped, "re-arming cancels the previous timer")
	require.Equal(t, 900*time.Millisecond, sched.last().d)

	sched.last().f()
	require.Equal(t, 0, c.TapCount(), "reset timer clears tap history")

	// a fresh sequence needs two taps again
	clock.Advance(100 * time.Millisecond)
	_, changed := c.Tap()
	require.False(t, changed)
	require.InDelta(t, 100, c.BPM(), 1e-9)
}

func TestStaleTimerCallbackIsIgnored(t *testing.T) {
	c, clock, sched := newTestController()
	c.Tap()
	stale := sched.last()
	clock.Advance(500 * time.Millisecond)
	c.Tap()

	stale.f()
	require.Equal(t, 2, c.TapCount(), "a cancelled timer must not clear a live sequence")
}

func TestResetTaps(t *testing.T) {
	c, _, sched := newTestController()
	c.Tap()
	c.ResetTaps()
	require.Equal(t, 0, c.TapCount())
	require.True(t, sched.last().stopped)
}

func TestRealTimerClearsTaps(t *testing.T) {
	c := New(WithAfterFunc(func(d time.Duration, f func()) Timer {
		return time.AfterFunc(time.Millisecond, f)
	}))
	c.Tap()
	require.Eventually(t, func() bool { return c.TapCount() == 0 }, time.Second, 5*time.Millisecond)
}
