package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/chronometro-go/internal/pattern"
	"github.com/cbegin/chronometro-go/internal/wavetable"
)

const testRate = 48000

// 120 BPM at 48 kHz: one quarter-note pulse per beat, 24000 samples long.
const quarterLen = 24000

func newPrepared(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := New(opts...)
	if err := e.PrepareToPlay(512, testRate); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return e
}

func render(e *Engine, frames int) []float32 {
	buf := make([]float32, frames*2)
	e.Process(buf)
	return buf
}

func TestSilentUntilStarted(t *testing.T) {
	e := newPrepared(t)
	for i, s := range render(e, 1024) {
		if s != 0 {
			t.Fatalf("sample %d = %f before start", i, s)
		}
	}
	if _, ok := e.Position(); ok {
		t.Fatal("position should be unavailable while stopped")
	}
}

func TestStartRequiresPrepare(t *testing.T) {
	e := New()
	if err := e.Start(); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("start before prepare: got %v", err)
	}
}

func TestRendersSineClickAtPulseStart(t *testing.T) {
	e := newPrepared(t)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	out := render(e, 4)
	if out[0] != 0 {
		t.Fatalf("first sample of a sine = %f, want 0", out[0])
	}
	want := math.Sin(2 * math.Pi * DefaultToneHz / testRate)
	if math.Abs(float64(out[2])-want) > 1e-3 {
		t.Fatalf("second sample = %f, want %f", out[2], want)
	}
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("frame %d: left %f != right %f", i/2, out[i], out[i+1])
		}
	}
}

func TestTailOffSilencesEndOfPulse(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	out := render(e, quarterLen)
	for i := 10000; i < quarterLen; i++ {
		if out[i*2] != 0 {
			t.Fatalf("frame %d = %f, tail should be silent", i, out[i*2])
		}
	}
}

func TestPulsesAreSampleAccurate(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	out := render(e, quarterLen*2+4)
	for i := 0; i < 4; i++ {
		a, b := out[i*2], out[(quarterLen+i)*2]
		if a != b {
			t.Fatalf("beat 2 frame %d = %f, beat 1 frame %d = %f", i, b, i, a)
		}
	}
	p, ok := e.Position()
	if !ok || p != (pattern.Position{Beat: 2}) {
		t.Fatalf("position = %+v %v, want beat 2", p, ok)
	}
}

func TestMutedPulseNeverSounds(t *testing.T) {
	e := newPrepared(t)
	if err := e.SetAccent(pattern.Position{Beat: 1}, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.SetHit(pattern.Position{Beat: 1}, false); err != nil {
		t.Fatal(err)
	}
	e.Start()
	out := render(e, quarterLen*4)
	for i := quarterLen; i < quarterLen*2; i++ {
		if out[i*2] != 0 || out[i*2+1] != 0 {
			t.Fatalf("muted beat produced %f at frame %d", out[i*2], i)
		}
	}
	if out[(quarterLen*2+1)*2] == 0 {
		t.Fatal("beat 3 should sound")
	}
}

func TestAccentDrivesSample(t *testing.T) {
	e := newPrepared(t)
	e.SetAccent(pattern.Position{}, 1)
	e.Start()
	out := render(e, 2)
	raw := math.Sin(2 * math.Pi * DefaultToneHz / testRate)
	want := math.Tanh((1 + math.Log(11)) * raw)
	if math.Abs(float64(out[2])-want) > 1e-3 {
		t.Fatalf("accented sample = %f, want %f", out[2], want)
	}
}

func TestStopSilencesNextBlock(t *testing.T) {
	var events []bool
	e := newPrepared(t, OnStateChange(func(p bool) { events = append(events, p) }))
	e.Start()
	e.Start()
	render(e, 10)
	e.Stop()
	e.Stop()
	for i, s := range render(e, 64) {
		if s != 0 {
			t.Fatalf("sample %d = %f after stop", i, s)
		}
	}
	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("state events = %v, want [true false]", events)
	}
	if e.IsPlaying() {
		t.Fatal("still playing")
	}
}

func TestRestartBeginsAtFirstPulse(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	first := render(e, 8)
	render(e, quarterLen+100)
	e.Stop()
	e.Start()
	again := render(e, 8)
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("sample %d differs after restart: %f vs %f", i, first[i], again[i])
		}
	}
}

func TestStructuralEditsOnlyWhileStopped(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	if err := e.InsertPulse(pattern.Position{Beat: 2, Pulse: 1}); !errors.Is(err, ErrPlaying) {
		t.Fatalf("insert while playing: got %v", err)
	}
	if err := e.ErasePulse(pattern.Position{Beat: 2}); !errors.Is(err, ErrPlaying) {
		t.Fatalf("erase while playing: got %v", err)
	}
	e.Stop()
	if err := e.InsertPulse(pattern.Position{Beat: 2, Pulse: 1}); err != nil {
		t.Fatalf("insert while stopped: %v", err)
	}
	snap := e.Snapshot()
	if len(snap[2].Pulses) != 2 {
		t.Fatalf("beat 2 has %d pulses, want 2", len(snap[2].Pulses))
	}
	for _, b := range []int{0, 1, 3} {
		if len(snap[b].Pulses) != 1 {
			t.Fatalf("beat %d changed: %d pulses", b, len(snap[b].Pulses))
		}
	}
}

func TestSubdivisionChangeWhilePlaying(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	render(e, 7000)
	// A sixteenth is 6000 samples long, already behind the current position.
	if err := e.SetNoteValue(pattern.Position{}, pattern.Sixteenth); err != nil {
		t.Fatal(err)
	}
	render(e, 10)
	p, ok := e.Position()
	if !ok || p != (pattern.Position{Beat: 0, Pulse: 1}) {
		t.Fatalf("position = %+v, want beat 0 pulse 1", p)
	}
	render(e, quarterLen)
	if e.Stats().BoundaryFaults != 0 {
		t.Fatalf("unexpected faults: %+v", e.Stats())
	}
}

func TestContendedBlockIsSkipped(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	e.mu.Lock()
	out := render(e, 32)
	e.mu.Unlock()
	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d = %f in a skipped block", i, s)
		}
	}
	if got := e.Stats().SkippedBlocks; got != 1 {
		t.Fatalf("skipped = %d, want 1", got)
	}
}

func TestRenderBlockDuplicatesChannels(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	e.RenderBlock(out)
	var energy float64
	for i := range out[0] {
		if out[0][i] != out[1][i] {
			t.Fatalf("frame %d: channels differ", i)
		}
		energy += float64(out[0][i] * out[0][i])
	}
	if energy == 0 {
		t.Fatal("block is silent")
	}
}

func TestOneShotSampleVoice(t *testing.T) {
	tab := wavetable.NewTable([]float32{1, 1, 1, 1}, testRate)
	e := newPrepared(t, WithSound(SampleSound(tab)))
	e.Start()
	out := render(e, 16)
	for i := 0; i < 16; i++ {
		want := float32(0)
		if i < 4 {
			want = 1
		}
		if out[i*2] != want {
			t.Fatalf("frame %d = %f, want %f", i, out[i*2], want)
		}
	}
}

func TestSilentSoundRendersSilence(t *testing.T) {
	e := newPrepared(t, WithSound(Sound{}))
	e.Start()
	for i, s := range render(e, 512) {
		if s != 0 {
			t.Fatalf("sample %d = %f", i, s)
		}
	}
}

func TestReleaseResourcesStops(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	e.ReleaseResources()
	if e.IsPlaying() {
		t.Fatal("release should stop playback")
	}
	if err := e.Start(); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("start after release: %v", err)
	}
	if err := e.PrepareToPlay(256, 44100); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestSkippedBlockKeepsBarInTime(t *testing.T) {
	e := newPrepared(t)
	e.Start()
	e.mu.Lock()
	render(e, 512)
	e.mu.Unlock()
	out := render(e, quarterLen-512+4)
	p, ok := e.Position()
	if !ok || p != (pattern.Position{Beat: 1}) {
		t.Fatalf("position = %+v %v, want beat 1", p, ok)
	}
	// Beat 1 starts on its own frame, not one block late.
	want := math.Sin(2 * math.Pi * DefaultToneHz / testRate)
	if got := out[(quarterLen-512+1)*2]; math.Abs(float64(got)-want) > 1e-3 {
		t.Fatalf("second frame of beat 1 = %f, want %f", got, want)
	}
}

type liveTempo struct{ bpm float64 }

func (l *liveTempo) SamplesPerBeat(sampleRate float64) float64 { return sampleRate * 60 / l.bpm }

func TestTempoChangeWaitsForRestart(t *testing.T) {
	tempo := &liveTempo{bpm: 120}
	e := newPrepared(t, WithTempo(tempo))
	e.Start()
	render(e, 100)
	tempo.bpm = 60
	// Re-applying the current value must not retime the beat.
	if err := e.SetNoteValue(pattern.Position{Beat: 2}, pattern.Quarter); err != nil {
		t.Fatal(err)
	}
	for b := 0; b < e.NumBeats(); b++ {
		if got := e.metre.Beat(b).Pulse(0).SampleLength(); got != quarterLen {
			t.Fatalf("beat %d length = %v, want %d", b, got, quarterLen)
		}
	}

	e.Stop()
	e.Start()
	for b := 0; b < e.NumBeats(); b++ {
		if got := e.metre.Beat(b).Pulse(0).SampleLength(); got != 2*quarterLen {
			t.Fatalf("beat %d length after restart = %v, want %d", b, got, 2*quarterLen)
		}
	}
}
