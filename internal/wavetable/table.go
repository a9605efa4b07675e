package wavetable

import "math"

const twoPi = math.Pi * 2

// DefaultSineSize is the sine table length used for the tone voice.
const DefaultSineSize = 128

// Table is an immutable waveform. data holds N samples plus a guard sample
// equal to data[0] so interpolation at N-1 never reads past the end.
type Table struct {
	data       []float32
	sampleRate float64
}

// NewTable copies samples into a table recorded at sampleRate. sampleRate is
// only used for one-shot playback and may be 0 for single-cycle tables.
func NewTable(samples []float32, sampleRate float64) *Table {
	data := make([]float32, len(samples)+1)
	copy(data, samples)
	if len(samples) > 0 {
		data[len(samples)] = samples[0]
	}
	return &Table{data: data, sampleRate: sampleRate}
}

// NewSineTable returns one cycle of a sine wave in size samples.
func NewSineTable(size int) *Table {
	if size <= 0 {
		size = DefaultSineSize
	}
	cycle := make([]float32, size)
	for i := range cycle {
		cycle[i] = float32(math.Sin(twoPi * float64(i) / float64(size)))
	}
	return NewTable(cycle, 0)
}

// Len is the number of samples excluding the guard sample.
func (t *Table) Len() int {
	if t == nil || len(t.data) == 0 {
		return 0
	}
	return len(t.data) - 1
}

// SampleRate is the native rate the table was recorded at.
func (t *Table) SampleRate() float64 {
	if t == nil {
		return 0
	}
	return t.sampleRate
}

// At linearly interpolates at a fractional index in [0, Len()).
func (t *Table) At(index float64) float32 {
	i0 := int(index)
	frac := float32(index - float64(i0))
	a := t.data[i0]
	b := t.data[i0+1]
	return a + frac*(b-a)
}
