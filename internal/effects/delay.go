package effects

// MaxDelaySeconds bounds the delay line allocation.
const MaxDelaySeconds = 2.0

// Delay is a stereo echo. With the time set to a beat interval the repeats
// land on the following clicks.
type Delay struct {
	bufL, bufR []float32
	pos        int
	feedback   float32
	wet        float32
}

// NewDelay creates a delay of seconds (clamped to (0, MaxDelaySeconds]).
// feedback is limited to 0.95 so the repeats always die out.
func NewDelay(sampleRate int, seconds float64, feedback, wet float32) *Delay {
	if seconds > MaxDelaySeconds {
		seconds = MaxDelaySeconds
	}
	n := int(seconds * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	return &Delay{
		bufL:     make([]float32, n),
		bufR:     make([]float32, n),
		feedback: clamp(feedback, 0, 0.95),
		wet:      clamp(wet, 0, 1),
	}
}

// Samples is the delay length.
func (d *Delay) Samples() int { return len(d.bufL) }

func (d *Delay) Process(l, r float32) (float32, float32) {
	outL, outR := d.bufL[d.pos], d.bufR[d.pos]
	d.bufL[d.pos] = l + outL*d.feedback
	d.bufR[d.pos] = r + outR*d.feedback
	if d.pos++; d.pos == len(d.bufL) {
		d.pos = 0
	}
	dry := 1 - d.wet
	return l*dry + outL*d.wet, r*dry + outR*d.wet
}

func (d *Delay) Reset() {
	clear(d.bufL)
	clear(d.bufR)
	d.pos = 0
}
