package pattern

import "math"

// Pulse is one rhythmic slot of a beat.
type Pulse struct {
	hit          bool
	accent       float32
	noteValue    NoteValue
	sampleLength float64
	position     int
	owner        int // index of the owning beat in Metre.beats
}

func newPulse(owner int, hit bool, accent float32, nv NoteValue, sampleLength float64) Pulse {
	return Pulse{
		hit:          hit,
		accent:       ClampAccent(accent),
		noteValue:    nv,
		sampleLength: sampleLength,
		owner:        owner,
	}
}

// ClampAccent limits an accent to [0, 1].
func ClampAccent(a float32) float32 {
	if math.IsNaN(float64(a)) || a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

func (p *Pulse) Hit() bool            { return p.hit }
func (p *Pulse) Accent() float32      { return p.accent }
func (p *Pulse) NoteValue() NoteValue { return p.noteValue }

// SampleLength is the pulse duration in output samples.
func (p *Pulse) SampleLength() float64 { return p.sampleLength }

// Position is the number of samples already rendered for this pulse.
func (p *Pulse) Position() int { return p.position }

// Beat returns the index of the owning beat.
func (p *Pulse) Beat() int { return p.owner }

// Step moves the pulse one sample forward and reports whether it is complete.
// A completed pulse is rewound to position 0.
func (p *Pulse) Step() bool {
	p.position++
	if float64(p.position) >= p.sampleLength {
		p.position = 0
		return true
	}
	return false
}

// Elapsed reports whether the pulse has no samples left to render, as
// happens when its length shrinks below the current position.
func (p *Pulse) Elapsed() bool {
	return float64(p.position) >= p.sampleLength
}

func (p *Pulse) Rewind() { p.position = 0 }

// Beat is a fixed array of pulse slots; only the first ActivePulses() sound.
// The rest are kept as reserved pulses.
type Beat struct {
	pulses [MaxPulses]Pulse
}

// NoteValue is shared by every pulse of the beat.
func (b *Beat) NoteValue() NoteValue { return b.pulses[0].noteValue }

func (b *Beat) ActivePulses() int { return b.pulses[0].noteValue.PulseCount() }

// Pulse returns slot i, or nil when i is outside the slot array.
func (b *Beat) Pulse(i int) *Pulse {
	if i < 0 || i >= MaxPulses {
		return nil
	}
	return &b.pulses[i]
}

// broadcast writes nv and its sample length to every slot.
func (b *Beat) broadcast(nv NoteValue, sampleLength float64) {
	for i := range b.pulses {
		b.pulses[i].noteValue = nv
		b.pulses[i].sampleLength = sampleLength
	}
}
