package effects

import "math"

// Tone is a two-knob tilt: the signal is split at two one-pole crossovers and
// the low and high bands are boosted or cut in dB. The mid band is untouched.
type Tone struct {
	low, high   float32
	lowA, highA float32
	lpL, lpR    float32
	hpL, hpR    float32
}

// NewTone splits at lowHz and highHz and applies lowDB and highDB to the
// outer bands. Gains are clamped to ±24 dB.
func NewTone(sampleRate int, lowDB, highDB, lowHz, highHz float64) *Tone {
	return &Tone{
		low:   float32(dbToLinear(clampDB(lowDB))),
		high:  float32(dbToLinear(clampDB(highDB))),
		lowA:  onePole(lowHz, sampleRate),
		highA: onePole(highHz, sampleRate),
	}
}

func clampDB(db float64) float64 {
	return math.Max(-24, math.Min(24, db))
}

// onePole is the smoothing coefficient of an RC lowpass at hz.
func onePole(hz float64, sampleRate int) float32 {
	if hz <= 0 || sampleRate <= 0 {
		return 1
	}
	rc := 1 / (2 * math.Pi * hz)
	dt := 1 / float64(sampleRate)
	return float32(dt / (rc + dt))
}

func (t *Tone) Process(l, r float32) (float32, float32) {
	t.lpL += t.lowA * (l - t.lpL)
	t.lpR += t.lowA * (r - t.lpR)
	t.hpL += t.highA * (l - t.hpL)
	t.hpR += t.highA * (r - t.hpR)

	highL, highR := l-t.hpL, r-t.hpR
	midL, midR := l-t.lpL-highL, r-t.lpR-highR
	return t.lpL*t.low + midL + highL*t.high,
		t.lpR*t.low + midR + highR*t.high
}

func (t *Tone) Reset() {
	t.lpL, t.lpR = 0, 0
	t.hpL, t.hpR = 0, 0
}
