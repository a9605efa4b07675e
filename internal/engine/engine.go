// Package engine renders a metre to audio. It owns the pattern, the click
// voice and the transport, and is the only place where the audio callback and
// the control surface meet.
//
// Control methods take the engine mutex. The render path never blocks on it:
// it tries the lock a bounded number of times and renders a silent block when
// a control call is in flight.
package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cbegin/chronometro-go/internal/envelope"
	"github.com/cbegin/chronometro-go/internal/pattern"
	"github.com/cbegin/chronometro-go/internal/wavetable"
)

// lockAttempts bounds the TryLock spin at the start of a render block.
const lockAttempts = 64

var (
	ErrNotPrepared = errors.New("engine: not prepared to play")
	ErrPlaying     = errors.New("engine: pattern cannot be restructured while playing")
)

// Sound describes the click voice. A nil Table is silent.
type Sound struct {
	Table       *wavetable.Table
	Mode        wavetable.Mode
	FrequencyHz float64
}

// DefaultToneHz is the pitch of the sine click.
const DefaultToneHz = 1760

// SineSound is the built-in click: a short sine tone.
func SineSound(freqHz float64) Sound {
	if !(freqHz > 0) {
		freqHz = DefaultToneHz
	}
	return Sound{
		Table:       wavetable.NewSineTable(wavetable.DefaultSineSize),
		Mode:        wavetable.Periodic,
		FrequencyHz: freqHz,
	}
}

// SampleSound plays a recorded table once per pulse.
func SampleSound(table *wavetable.Table) Sound {
	return Sound{Table: table, Mode: wavetable.OneShot}
}

func (s Sound) oscillator(outputRate float64) *wavetable.Oscillator {
	if s.Table == nil {
		return wavetable.Silent()
	}
	if s.Mode == wavetable.OneShot {
		return wavetable.NewOneShot(s.Table, outputRate)
	}
	return wavetable.NewTone(s.Table, s.FrequencyHz, outputRate)
}

// Stats counts render-path anomalies since the engine was created.
type Stats struct {
	// SkippedBlocks were rendered silent because a control call held the lock.
	SkippedBlocks uint64
	// BoundaryFaults are samples where no playable pulse could be found.
	BoundaryFaults uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTempo sets where pulse lengths are read from. Defaults to 120 BPM.
func WithTempo(t pattern.Tempo) Option {
	return func(e *Engine) {
		e.tempo = t
	}
}

// WithBeats sets the number of beats in the bar.
func WithBeats(n int) Option {
	return func(e *Engine) {
		e.numBeats = pattern.ClampBeats(n)
	}
}

func WithSound(s Sound) Option {
	return func(e *Engine) {
		e.sound = s
	}
}

// OnStateChange registers fn to be called after every start/stop transition.
// fn runs on the goroutine that called Start or Stop, never the audio callback.
func OnStateChange(fn func(playing bool)) Option {
	return func(e *Engine) {
		e.onState = fn
	}
}

type Engine struct {
	mu       sync.Mutex
	tempo    pattern.Tempo
	metre    *pattern.Metre
	numBeats int
	sound    Sound
	osc      *wavetable.Oscillator
	tail     envelope.TailOff

	sampleRate float64
	blockSize  int
	prepared   bool

	playing atomic.Bool
	cursor  atomic.Uint64
	skipped atomic.Uint64
	faults  atomic.Uint64
	// lag counts frames lost to skipped blocks; the next block replays them
	// silently so the bar keeps time.
	lag atomic.Int64

	onState func(bool)
}

func New(opts ...Option) *Engine {
	e := &Engine{
		tempo:    pattern.FixedBPM(120),
		numBeats: pattern.DefaultBeats,
		sound:    SineSound(DefaultToneHz),
		osc:      wavetable.Silent(),
		tail:     envelope.NewTailOff(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metre = pattern.New(e.tempo)
	return e
}

// PrepareToPlay must be called before streaming, and again whenever the
// output rate changes. The first call builds the pattern.
func (e *Engine) PrepareToPlay(blockSize int, sampleRate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.metre.Initialized() {
		if err := e.metre.Init(sampleRate, e.numBeats); err != nil {
			return err
		}
	} else if err := e.metre.SetSampleRate(sampleRate); err != nil {
		return err
	}
	e.sampleRate = sampleRate
	e.blockSize = blockSize
	e.osc = e.sound.oscillator(sampleRate)
	e.tail.Reset()
	if !e.playing.Load() {
		e.metre.Park()
	}
	e.prepared = true
	e.publishCursor()
	return nil
}

// ReleaseResources stops playback; PrepareToPlay must be called again
// before the next Start.
func (e *Engine) ReleaseResources() {
	changed := e.playing.Swap(false)
	e.mu.Lock()
	e.prepared = false
	if e.metre.Initialized() {
		e.metre.Park()
	}
	e.publishCursor()
	e.mu.Unlock()
	if changed {
		e.notify(false)
	}
}

func (e *Engine) SampleRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

func (e *Engine) NumBeats() int { return e.numBeats }

// SetSound swaps the click voice. It takes effect on the next sample.
func (e *Engine) SetSound(s Sound) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sound = s
	if e.prepared {
		e.osc = s.oscillator(e.sampleRate)
	}
}

// Start rewinds the pattern, picking up the current tempo, and begins
// rendering. It does nothing when already playing.
func (e *Engine) Start() error {
	e.mu.Lock()
	if !e.prepared {
		e.mu.Unlock()
		return ErrNotPrepared
	}
	if e.playing.Load() {
		e.mu.Unlock()
		return nil
	}
	e.metre.Reset()
	e.tail.Reset()
	e.osc.Rewind()
	e.lag.Store(0)
	e.publishCursor()
	e.playing.Store(true)
	e.mu.Unlock()
	e.notify(true)
	return nil
}

// Stop silences the output from the next rendered block. It does nothing
// when already stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.playing.Load() {
		e.mu.Unlock()
		return
	}
	e.playing.Store(false)
	if e.metre.Initialized() {
		e.metre.Park()
	}
	e.tail.Reset()
	e.publishCursor()
	e.mu.Unlock()
	e.notify(false)
}

func (e *Engine) IsPlaying() bool { return e.playing.Load() }

func (e *Engine) notify(playing bool) {
	if e.onState != nil {
		e.onState(playing)
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		SkippedBlocks:  e.skipped.Load(),
		BoundaryFaults: e.faults.Load(),
	}
}

// Position returns the pulse currently sounding. ok is false while stopped.
// It never takes the engine lock, so a UI can poll it every frame.
func (e *Engine) Position() (p pattern.Position, ok bool) {
	v := e.cursor.Load()
	if v&1 == 0 {
		return pattern.Position{}, false
	}
	return pattern.Position{Beat: int(v >> 33), Pulse: int((v >> 1) & 0xffffffff)}, true
}

// publishCursor stores the cursor for Position. Must be called with mu held.
func (e *Engine) publishCursor() {
	if !e.metre.Initialized() || e.metre.AtEnd() {
		e.cursor.Store(0)
		return
	}
	c := e.metre.Cursor()
	e.cursor.Store(uint64(c.Beat)<<33 | uint64(uint32(c.Pulse))<<1 | 1)
}

// SetNoteValue changes the subdivision of the beat at p. Allowed while playing.
func (e *Engine) SetNoteValue(p pattern.Position, nv pattern.NoteValue) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metre.SetNoteValue(p, nv)
}

func (e *Engine) SetHit(p pattern.Position, hit bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metre.SetHit(p, hit)
}

func (e *Engine) SetAccent(p pattern.Position, accent float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metre.SetAccent(p, accent)
}

// InsertPulse adds a pulse to the beat at p. Only allowed while stopped.
func (e *Engine) InsertPulse(p pattern.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing.Load() {
		return ErrPlaying
	}
	return e.metre.InsertPulse(p)
}

// ErasePulse removes the pulse at p. Only allowed while stopped.
func (e *Engine) ErasePulse(p pattern.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing.Load() {
		return ErrPlaying
	}
	return e.metre.ErasePulse(p)
}

// PulseView is a read-only copy of one pulse.
type PulseView struct {
	Hit    bool
	Accent float32
}

// BeatView is a read-only copy of one beat's active pulses.
type BeatView struct {
	NoteValue pattern.NoteValue
	Pulses    []PulseView
}

// Snapshot copies the pattern for display. It allocates and takes the lock;
// never call it from the audio callback.
func (e *Engine) Snapshot() []BeatView {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.metre.Initialized() {
		return nil
	}
	out := make([]BeatView, e.metre.NumBeats())
	for b := range out {
		beat := e.metre.Beat(b)
		view := BeatView{
			NoteValue: beat.NoteValue(),
			Pulses:    make([]PulseView, beat.ActivePulses()),
		}
		for i := range view.Pulses {
			p := beat.Pulse(i)
			view.Pulses[i] = PulseView{Hit: p.Hit(), Accent: p.Accent()}
		}
		out[b] = view
	}
	return out
}

// Process fills dst with interleaved stereo frames.
func (e *Engine) Process(dst []float32) {
	if !e.acquire(len(dst) / 2) {
		clear(dst)
		return
	}
	defer e.mu.Unlock()
	e.catchUp()
	for i := 0; i+1 < len(dst); i += 2 {
		s := e.renderSample()
		dst[i] = s
		dst[i+1] = s
	}
	if len(dst)%2 == 1 {
		dst[len(dst)-1] = 0
	}
	e.publishCursor()
}

// RenderBlock fills every channel of out with the same mono signal. All
// channels must have the same length.
func (e *Engine) RenderBlock(out [][]float32) {
	if len(out) == 0 {
		return
	}
	if !e.acquire(len(out[0])) {
		for _, ch := range out {
			clear(ch)
		}
		return
	}
	defer e.mu.Unlock()
	e.catchUp()
	first := out[0]
	for i := range first {
		first[i] = e.renderSample()
	}
	for _, ch := range out[1:] {
		copy(ch, first)
	}
	e.publishCursor()
}

// acquire takes the lock for a render block of frames. It fails when the lock
// stays held or when there is nothing to render; the caller then outputs
// silence.
func (e *Engine) acquire(frames int) bool {
	if !e.playing.Load() {
		return false
	}
	for i := 0; i < lockAttempts; i++ {
		if e.mu.TryLock() {
			if e.prepared {
				return true
			}
			e.mu.Unlock()
			return false
		}
	}
	e.skipped.Add(1)
	e.lag.Add(int64(frames))
	return false
}

// catchUp advances the pattern over frames lost to skipped blocks. Must be
// called with mu held.
func (e *Engine) catchUp() {
	for n := e.lag.Swap(0); n > 0; n-- {
		e.renderSample()
	}
}

// renderSample produces one mono sample and moves the pattern forward by one
// sample. Must be called with mu held.
func (e *Engine) renderSample() float32 {
	m := e.metre
	if m.AtEnd() {
		return 0
	}
	pulse := m.Current()
	// A subdivision edit can shrink the beat under the cursor or leave the
	// current pulse shorter than its position. Skip forward to a pulse that
	// still has samples left, giving up after one full cycle.
	if pulse == nil || pulse.Elapsed() {
		budget := m.ActivePulses() + 1
		for pulse == nil || pulse.Elapsed() {
			if budget == 0 {
				e.faults.Add(1)
				debugAssert(false, "no pulse with a positive length in the pattern")
				return 0
			}
			budget--
			if pulse != nil {
				pulse.Rewind()
			}
			e.tail.Reset()
			m.Advance()
			pulse = m.Current()
		}
	}

	if pulse.Position() == 0 {
		e.osc.Rewind()
	}
	var s float32
	if pulse.Hit() && e.tail.Audible() {
		s = e.osc.Next()
		s = e.tail.Apply(s, pulse.Position(), pulse.SampleLength())
		s = envelope.Accent(s, pulse.Accent())
	}
	if pulse.Step() {
		e.tail.Reset()
		e.osc.Rewind()
		m.Advance()
	}
	return s
}
