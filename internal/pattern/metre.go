package pattern

import "errors"

const (
	DefaultBeats = 4
	MaxBeats     = 16
)

var (
	ErrInitialized    = errors.New("pattern: metre already initialised")
	ErrNotInitialized = errors.New("pattern: metre not initialised")
	ErrSampleRate     = errors.New("pattern: sample rate must be positive")
	ErrOutOfRange     = errors.New("pattern: position out of range")
	ErrCurrentPulse   = errors.New("pattern: position is the current pulse")
	ErrBeatFull       = errors.New("pattern: beat has no free pulse slot")
	ErrBeatEmpty      = errors.New("pattern: beat must keep one pulse")
)

// Tempo supplies the length of one beat in samples.
type Tempo interface {
	SamplesPerBeat(sampleRate float64) float64
}

// FixedBPM is a constant Tempo.
type FixedBPM float64

func (b FixedBPM) SamplesPerBeat(sampleRate float64) float64 {
	return sampleRate * 60 / float64(b)
}

// Position addresses a pulse slot: beat index and slot index within the beat.
type Position struct {
	Beat  int
	Pulse int
}

// Metre is the cyclic pattern of beats plus the live cursor. The beats slice
// carries one trailing sentinel beat that marks the end position and is never
// played.
//
// Metre is not safe for concurrent use; the engine serialises access.
type Metre struct {
	tempo      Tempo
	sampleRate float64
	// beatLength is the tempo sampled at the last Init or Reset; edits in
	// between use it.
	beatLength float64
	beats      []Beat
	cur        Position
}

// New returns an uninitialised metre that reads its tempo from t.
func New(t Tempo) *Metre {
	if t == nil {
		t = FixedBPM(120)
	}
	return &Metre{tempo: t}
}

// Init builds numBeats beats of MaxPulses quarter-note slots each and places
// the cursor on the first pulse. It may only be called once.
func (m *Metre) Init(sampleRate float64, numBeats int) error {
	if m.beats != nil {
		return ErrInitialized
	}
	if !(sampleRate > 0) {
		return ErrSampleRate
	}
	numBeats = ClampBeats(numBeats)
	m.sampleRate = sampleRate
	m.beatLength = m.tempo.SamplesPerBeat(sampleRate)
	length := m.SampleLength(Quarter)
	m.beats = make([]Beat, numBeats+1)
	for b := range m.beats {
		for i := range m.beats[b].pulses {
			m.beats[b].pulses[i] = newPulse(b, true, 0, Quarter, length)
		}
	}
	m.cur = m.Begin()
	return nil
}

// ClampBeats limits a bar length to [1, MaxBeats]; zero selects DefaultBeats.
func ClampBeats(n int) int {
	if n == 0 {
		return DefaultBeats
	}
	if n < 1 {
		return 1
	}
	if n > MaxBeats {
		return MaxBeats
	}
	return n
}

func (m *Metre) Initialized() bool { return m.beats != nil }

func (m *Metre) SampleRate() float64 { return m.sampleRate }

// SetSampleRate changes the output rate and resets the pattern.
func (m *Metre) SetSampleRate(sampleRate float64) error {
	if !(sampleRate > 0) {
		return ErrSampleRate
	}
	m.sampleRate = sampleRate
	m.Reset()
	return nil
}

// NumBeats excludes the sentinel beat.
func (m *Metre) NumBeats() int {
	if len(m.beats) == 0 {
		return 0
	}
	return len(m.beats) - 1
}

// Beat returns beat i, or nil when out of range.
func (m *Metre) Beat(i int) *Beat {
	if i < 0 || i >= m.NumBeats() {
		return nil
	}
	return &m.beats[i]
}

// SampleLength converts a note value to samples at the tempo taken by the
// last Init or Reset.
func (m *Metre) SampleLength(nv NoteValue) float64 {
	return m.beatLength * float64(BaseNoteValue) / float64(nv)
}

// ActivePulses is the number of pulses in one full cycle.
func (m *Metre) ActivePulses() int {
	n := 0
	for b := 0; b < m.NumBeats(); b++ {
		n += m.beats[b].ActivePulses()
	}
	return n
}

// Reset recomputes every sample length from the tempo, rewinds every pulse
// and returns the cursor to the first pulse.
func (m *Metre) Reset() {
	m.beatLength = m.tempo.SamplesPerBeat(m.sampleRate)
	for b := range m.beats {
		beat := &m.beats[b]
		beat.broadcast(beat.NoteValue(), m.SampleLength(beat.NoteValue()))
		for i := range beat.pulses {
			beat.pulses[i].position = 0
		}
	}
	m.cur = m.Begin()
}

// SetNoteValue changes the subdivision of the beat owning the pulse at p; every
// pulse of that beat takes the new value and sample length.
func (m *Metre) SetNoteValue(p Position, nv NoteValue) error {
	pulse, err := m.slot(p)
	if err != nil {
		return err
	}
	nv = NormalizeNoteValue(nv)
	m.beats[pulse.owner].broadcast(nv, m.SampleLength(nv))
	return nil
}

func (m *Metre) SetHit(p Position, hit bool) error {
	pulse, err := m.slot(p)
	if err != nil {
		return err
	}
	pulse.hit = hit
	return nil
}

func (m *Metre) SetAccent(p Position, accent float32) error {
	pulse, err := m.slot(p)
	if err != nil {
		return err
	}
	pulse.accent = ClampAccent(accent)
	return nil
}

// InsertPulse adds a sounding pulse at p, shifting later slots right. The beat
// moves to the next finer note value so its active window grows by one.
func (m *Metre) InsertPulse(p Position) error {
	beat, err := m.editableBeat(p)
	if err != nil {
		return err
	}
	if p.Pulse > beat.ActivePulses() {
		return ErrOutOfRange
	}
	nv, ok := beat.NoteValue().Finer()
	if !ok {
		return ErrBeatFull
	}
	copy(beat.pulses[p.Pulse+1:], beat.pulses[p.Pulse:MaxPulses-1])
	beat.pulses[p.Pulse] = newPulse(p.Beat, true, 0, nv, 0)
	beat.broadcast(nv, m.SampleLength(nv))
	return nil
}

// ErasePulse removes the pulse at p, shifting later slots left. The beat moves
// to the next coarser note value so its active window shrinks by one.
func (m *Metre) ErasePulse(p Position) error {
	beat, err := m.editableBeat(p)
	if err != nil {
		return err
	}
	if p.Pulse >= beat.ActivePulses() {
		return ErrOutOfRange
	}
	nv, ok := beat.NoteValue().Coarser()
	if !ok {
		return ErrBeatEmpty
	}
	copy(beat.pulses[p.Pulse:], beat.pulses[p.Pulse+1:])
	beat.pulses[MaxPulses-1] = newPulse(p.Beat, true, 0, nv, 0)
	beat.broadcast(nv, m.SampleLength(nv))
	return nil
}

func (m *Metre) editableBeat(p Position) (*Beat, error) {
	if !m.Initialized() {
		return nil, ErrNotInitialized
	}
	beat := m.Beat(p.Beat)
	if beat == nil || p.Pulse < 0 || p.Pulse >= MaxPulses {
		return nil, ErrOutOfRange
	}
	if p == m.cur {
		return nil, ErrCurrentPulse
	}
	return beat, nil
}

func (m *Metre) slot(p Position) (*Pulse, error) {
	if !m.Initialized() {
		return nil, ErrNotInitialized
	}
	beat := m.Beat(p.Beat)
	if beat == nil {
		return nil, ErrOutOfRange
	}
	pulse := beat.Pulse(p.Pulse)
	if pulse == nil {
		return nil, ErrOutOfRange
	}
	return pulse, nil
}
