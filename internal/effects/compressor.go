package effects

import "math"

// Compressor is a feed-forward compressor with a linked stereo detector, so
// both channels of the mono click get the same gain.
type Compressor struct {
	thresholdDB float64
	slope       float64 // 1/ratio - 1
	attack      float64
	release     float64
	makeup      float32
	env         float64
}

// NewCompressor takes the threshold in dBFS, a ratio >= 1, attack and release
// times in milliseconds and makeup gain in dB.
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		thresholdDB: thresholdDB,
		slope:       1/ratio - 1,
		attack:      smoothing(attackMs, sampleRate),
		release:     smoothing(releaseMs, sampleRate),
		makeup:      float32(dbToLinear(makeupDB)),
	}
}

// smoothing turns a time constant into a one-pole coefficient.
func smoothing(ms float64, sampleRate int) float64 {
	n := ms * float64(sampleRate) / 1000
	if n <= 1 {
		return 1
	}
	return 1 - math.Exp(-1/n)
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
	coeff := c.release
	if peak > c.env {
		coeff = c.attack
	}
	c.env += coeff * (peak - c.env)
	g := float32(c.gain()) * c.makeup
	return l * g, r * g
}

// gain is the reduction for the current envelope.
func (c *Compressor) gain() float64 {
	if c.env <= 0 {
		return 1
	}
	over := linearToDB(c.env) - c.thresholdDB
	if over <= 0 {
		return 1
	}
	return dbToLinear(over * c.slope)
}

func (c *Compressor) Reset() {
	c.env = 0
}
