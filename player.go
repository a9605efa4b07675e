// Package chronometro is a metronome engine: a bar of beats, each split into
// pulses that can be muted, accented and subdivided, clicked in time on the
// sound device.
package chronometro

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/chronometro-go/internal/audio"
	intfx "github.com/cbegin/chronometro-go/internal/effects"
	intengine "github.com/cbegin/chronometro-go/internal/engine"
	intpattern "github.com/cbegin/chronometro-go/internal/pattern"
	intsample "github.com/cbegin/chronometro-go/internal/samplesrc"
	inttempo "github.com/cbegin/chronometro-go/internal/tempo"
	intwt "github.com/cbegin/chronometro-go/internal/wavetable"
)

// StateEvent is sent on the Watch channel after every start/stop transition.
type StateEvent struct {
	Playing bool
}

// NoteValue is a beat subdivision.
type NoteValue = intpattern.NoteValue

const (
	Whole     = intpattern.Whole
	Half      = intpattern.Half
	Quarter   = intpattern.Quarter
	Eighth    = intpattern.Eighth
	Triplet   = intpattern.Triplet
	Sixteenth = intpattern.Sixteenth
)

// Position addresses one pulse: the beat in the bar and the pulse in the beat.
type Position = intpattern.Position

// BeatView is a display copy of one beat, as returned by Pattern.
type BeatView = intengine.BeatView

// PulseView is a display copy of one pulse.
type PulseView = intengine.PulseView

// Stats counts render-path anomalies.
type Stats = intengine.Stats

type Backend = intaudio.Backend

const (
	BackendEbiten = intaudio.BackendEbiten
	BackendOto    = intaudio.BackendOto
)

var (
	// ErrPlaying is returned by InsertPulse and ErasePulse while playing.
	ErrPlaying = intengine.ErrPlaying
	// ErrCurrentPulse is returned when an edit targets the sounding pulse.
	ErrCurrentPulse = intpattern.ErrCurrentPulse
	ErrBeatFull     = intpattern.ErrBeatFull
	ErrBeatEmpty    = intpattern.ErrBeatEmpty
	ErrOutOfRange   = intpattern.ErrOutOfRange
)

// Sound selects the click voice: a sine tone, or a sample file when Path is
// set.
type Sound struct {
	FrequencyHz float64
	Path        string
	MaxFrames   int
}

func SineSound(freqHz float64) Sound { return Sound{FrequencyHz: freqHz} }

// SampleFile plays the first maxFrames frames of a .wav or .ogg file.
// maxFrames <= 0 keeps 2048.
func SampleFile(path string, maxFrames int) Sound {
	return Sound{Path: path, MaxFrames: maxFrames}
}

// renderBlockFrames is the block size used when rendering without a device.
const renderBlockFrames = 512

type PlayerOption func(*playerConfig)

type playerConfig struct {
	bpm        float64
	beats      int
	sound      Sound
	gainDB     float64
	backend    Backend
	bufferSize time.Duration
	effects    []intfx.Spec
	logger     *slog.Logger
	sampleTap  func([]float32)
	noOutput   bool
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		bpm:     inttempo.DefaultBPM,
		beats:   intpattern.DefaultBeats,
		sound:   SineSound(intengine.DefaultToneHz),
		gainDB:  intfx.DefaultGainDB,
		backend: intaudio.BackendEbiten,
	}
}

func WithBPM(bpm float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bpm = bpm
	}
}

// WithBeatsPerBar sets the bar length, clamped to 1..16.
func WithBeatsPerBar(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.beats = n
	}
}

func WithSound(s Sound) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sound = s
	}
}

// WithGainDB sets the output level, clamped to [-60, 0] dB.
func WithGainDB(db float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.gainDB = db
	}
}

// WithBackend selects the audio device library. bufferSize is honoured by
// the oto backend only; zero keeps the default.
func WithBackend(b Backend, bufferSize time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = b
		cfg.bufferSize = bufferSize
	}
}

// WithEffect appends an effect to the output chain. Known types are delay,
// compressor, room and tone.
func WithEffect(kind string, params map[string]float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.effects = append(cfg.effects, intfx.Spec{Type: kind, Params: params})
	}
}

func WithLogger(l *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.logger = l
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithoutAudioOutput keeps the player off the sound device. Audio is only
// produced through Render.
func WithoutAudioOutput() PlayerOption {
	return func(cfg *playerConfig) {
		cfg.noOutput = true
	}
}

// Player is a metronome: a looping bar of beats rendered to the sound device.
// All methods are safe for concurrent use.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	backend    Backend
	bufferSize time.Duration
	noOutput   bool
	logger     *slog.Logger

	tempo  *inttempo.Controller
	engine *intengine.Engine
	gain   *intfx.Gain
	source *renderSource
	out    intaudio.Output

	soundErr  error
	lastStats Stats

	eventCh   chan StateEvent
	eventChMu sync.Mutex
}

// renderSource runs the engine and post-processing for each device block.
type renderSource struct {
	engine    *intengine.Engine
	effects   *intfx.Chain
	gain      *intfx.Gain
	sampleTap func([]float32)
	// restarted asks the audio goroutine to clear effect tails before the
	// next block.
	restarted atomic.Bool
}

func (s *renderSource) Process(dst []float32) {
	if s.restarted.Swap(false) {
		s.effects.Reset()
	}
	s.engine.Process(dst)
	s.effects.ProcessBlock(dst)
	s.gain.ProcessBlock(dst)
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("chronometro: sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	chain, err := intfx.Build(cfg.effects, sampleRate)
	if err != nil {
		return nil, err
	}

	p := &Player{
		sampleRate: sampleRate,
		backend:    cfg.backend,
		bufferSize: cfg.bufferSize,
		noOutput:   cfg.noOutput,
		logger:     logger,
		tempo:      inttempo.New(),
		gain:       intfx.NewGain(cfg.gainDB),
	}
	p.tempo.SetBPM(cfg.bpm)

	sound, soundErr := loadSound(cfg.sound)
	if soundErr != nil {
		p.soundErr = soundErr
		logger.Warn("click sample unavailable, voice is silent", "path", cfg.sound.Path, "err", soundErr)
	}
	p.engine = intengine.New(
		intengine.WithTempo(p.tempo),
		intengine.WithBeats(cfg.beats),
		intengine.WithSound(sound),
		intengine.OnStateChange(func(playing bool) {
			p.sendEvent(StateEvent{Playing: playing})
		}),
	)
	if err := p.engine.PrepareToPlay(renderBlockFrames, float64(sampleRate)); err != nil {
		return nil, err
	}
	p.source = &renderSource{
		engine:    p.engine,
		effects:   chain,
		gain:      p.gain,
		sampleTap: cfg.sampleTap,
	}
	logger.Debug("player ready",
		"sample_rate", sampleRate,
		"bpm", p.tempo.BPM(),
		"beats", p.engine.NumBeats(),
		"effects", chain.Len(),
		"backend", cfg.backend,
	)
	return p, nil
}

// loadSound resolves s to an engine voice. A sample that cannot be decoded
// yields a silent voice together with the error.
func loadSound(s Sound) (intengine.Sound, error) {
	if s.Path == "" {
		return intengine.SineSound(s.FrequencyHz), nil
	}
	sample, err := intsample.Load(s.Path, s.MaxFrames)
	if err != nil {
		return intengine.Sound{}, err
	}
	return intengine.SampleSound(intwt.NewTable(sample.Data, sample.SampleRate)), nil
}

// SoundError reports why the configured click sample could not be loaded.
func (p *Player) SoundError() error { return p.soundErr }

func (p *Player) SampleRate() int { return p.sampleRate }

// Start plays the bar from its first pulse, picking up the current tempo.
// The sound device is opened on the first call.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.openOutputLocked(); err != nil {
		return err
	}
	if !p.engine.IsPlaying() {
		p.source.restarted.Store(true)
	}
	if err := p.engine.Start(); err != nil {
		return err
	}
	p.logger.Debug("started", "bpm", p.tempo.BPM())
	return nil
}

func (p *Player) openOutputLocked() error {
	if p.noOutput || p.out != nil {
		return nil
	}
	out, err := intaudio.Open(intaudio.Options{
		Backend:    p.backend,
		SampleRate: p.sampleRate,
		BufferSize: p.bufferSize,
	}, p.source)
	if err != nil {
		return fmt.Errorf("chronometro: open audio output: %w", err)
	}
	out.Play()
	p.out = out
	p.logger.Debug("audio output open", "backend", p.backend)
	return nil
}

// Stop silences the metronome. The device keeps running so the next Start
// is immediate.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Stop()
	p.logStatsLocked()
}

// Toggle starts a stopped player and stops a playing one.
func (p *Player) Toggle() error {
	if p.IsPlaying() {
		p.Stop()
		return nil
	}
	return p.Start()
}

func (p *Player) IsPlaying() bool { return p.engine.IsPlaying() }

// Close stops playback and releases the sound device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.ReleaseResources()
	p.logStatsLocked()
	if p.out == nil {
		return nil
	}
	err := p.out.Close()
	p.out = nil
	return err
}

// Stats returns the render-path counters since the player was created.
func (p *Player) Stats() Stats { return p.engine.Stats() }

func (p *Player) logStatsLocked() {
	s := p.engine.Stats()
	if s == p.lastStats {
		return
	}
	p.logger.Warn("render anomalies",
		"skipped_blocks", s.SkippedBlocks-p.lastStats.SkippedBlocks,
		"boundary_faults", s.BoundaryFaults-p.lastStats.BoundaryFaults,
	)
	p.lastStats = s
}

func (p *Player) sendEvent(ev StateEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives a StateEvent after every start and
// stop. The channel is buffered (cap 8) and events are dropped when it is
// full. Only the most recent Watch() channel receives events.
func (p *Player) Watch() <-chan StateEvent {
	ch := make(chan StateEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetBPM sets the tempo, clamped to [20, 999]. A running bar keeps its
// pulse lengths; the new tempo is heard from the next Start.
func (p *Player) SetBPM(bpm float64) {
	p.tempo.SetBPM(bpm)
	p.logger.Debug("bpm set", "bpm", p.tempo.BPM())
}

func (p *Player) BPM() float64 { return p.tempo.BPM() }

// Tap registers a tap-tempo tap. From the second tap on the tempo follows the
// latest interval; changed reports whether the BPM was updated.
func (p *Player) Tap() (bpm float64, changed bool) {
	bpm, changed = p.tempo.Tap()
	if changed {
		p.logger.Debug("tap tempo", "bpm", bpm)
	}
	return bpm, changed
}

// BeatInterval is the length of one beat at the current tempo.
func (p *Player) BeatInterval() time.Duration {
	return time.Duration(p.tempo.IntervalSeconds() * float64(time.Second))
}

// SetGainDB sets the output level in dB, clamped to [-60, 0]. The change is
// ramped over the next block.
func (p *Player) SetGainDB(db float64) { p.gain.SetDB(db) }

func (p *Player) GainDB() float64 { return p.gain.DB() }

func (p *Player) NumBeats() int { return p.engine.NumBeats() }

// Position is the pulse currently sounding; ok is false while stopped.
func (p *Player) Position() (pos Position, ok bool) { return p.engine.Position() }

// Pattern returns a copy of every beat's note value and active pulses.
func (p *Player) Pattern() []BeatView { return p.engine.Snapshot() }

func (p *Player) SetHit(pos Position, hit bool) error {
	return p.engine.SetHit(pos, hit)
}

// SetAccent sets a pulse's accent, clamped to [0, 1].
func (p *Player) SetAccent(pos Position, accent float32) error {
	return p.engine.SetAccent(pos, accent)
}

// SetNoteValue changes the subdivision of the beat holding pos. Invalid note
// values are moved to the nearest valid one. Takes effect immediately.
func (p *Player) SetNoteValue(pos Position, nv NoteValue) error {
	return p.engine.SetNoteValue(pos, nv)
}

// InsertPulse adds a pulse at pos, moving the beat to the next finer note
// value. Only allowed while stopped.
func (p *Player) InsertPulse(pos Position) error {
	return p.engine.InsertPulse(pos)
}

// ErasePulse removes the pulse at pos, moving the beat to the next coarser
// note value. Only allowed while stopped.
func (p *Player) ErasePulse(pos Position) error {
	return p.engine.ErasePulse(pos)
}

// Render pulls len(dst)/2 stereo frames through the full output path. It is
// meant for players built WithoutAudioOutput.
func (p *Player) Render(dst []float32) {
	for len(dst) > 0 {
		n := min(len(dst), renderBlockFrames*2)
		p.source.Process(dst[:n])
		dst = dst[n:]
	}
}
