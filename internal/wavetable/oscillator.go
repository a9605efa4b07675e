package wavetable

// Mode selects what happens when the read head reaches the end of the table.
type Mode int

const (
	// Periodic wraps the read head; used for tones.
	Periodic Mode = iota
	// OneShot outputs silence once the table has been played through.
	OneShot
)

func (m Mode) String() string {
	if m == OneShot {
		return "one-shot"
	}
	return "periodic"
}

// Oscillator reads a Table at a fixed rate. The zero value and an oscillator
// over an empty table are silent.
type Oscillator struct {
	table *Table
	mode  Mode
	index float64
	delta float64
}

// NewTone plays table as a periodic waveform at freqHz.
func NewTone(table *Table, freqHz, outputRate float64) *Oscillator {
	o := &Oscillator{table: table, mode: Periodic}
	if n := table.Len(); n > 0 && outputRate > 0 {
		o.delta = freqHz * float64(n) / outputRate
	}
	return o
}

// NewOneShot plays table once, resampled from its native rate to outputRate.
func NewOneShot(table *Table, outputRate float64) *Oscillator {
	o := &Oscillator{table: table, mode: OneShot}
	if table.Len() > 0 && outputRate > 0 && table.SampleRate() > 0 {
		o.delta = table.SampleRate() / outputRate
	}
	return o
}

// Silent returns an oscillator that always outputs 0.
func Silent() *Oscillator { return &Oscillator{mode: OneShot} }

func (o *Oscillator) Mode() Mode { return o.mode }

// Index is the fractional read position.
func (o *Oscillator) Index() float64 { return o.index }

func (o *Oscillator) Delta() float64 { return o.delta }

// Rewind moves the read head back to the first sample.
func (o *Oscillator) Rewind() { o.index = 0 }

// Next returns the sample under the read head and advances it.
func (o *Oscillator) Next() float32 {
	n := o.table.Len()
	if n == 0 {
		return 0
	}
	size := float64(n)
	if o.mode == OneShot && o.index >= size {
		return 0
	}
	s := o.table.At(o.index)
	o.index += o.delta
	if o.mode == Periodic {
		for o.index >= size {
			o.index -= size
		}
	}
	return s
}
