// Package envelope shapes a pulse's raw oscillator output: an exponential
// tail-off near the end of the pulse and a soft-saturating accent curve.
package envelope

import "math"

const (
	// TailStart is the fraction of a pulse after which the tail-off decays.
	TailStart = 0.3
	// TailDecay multiplies the tail-off level once per decaying sample.
	TailDecay = 0.99
	// TailFloor is the level below which a pulse is treated as silent.
	TailFloor = 0.005
)

// TailOff is the per-pulse decay envelope. The zero value is not ready; use
// NewTailOff or call Reset.
type TailOff struct {
	level float32
}

func NewTailOff() TailOff { return TailOff{level: 1} }

func (t *TailOff) Level() float32 { return t.level }

func (t *TailOff) Reset() { t.level = 1 }

// Audible reports whether the envelope is still above TailFloor.
func (t *TailOff) Audible() bool { return t.level > TailFloor }

// Apply scales s by the envelope. The level only decays once position has
// passed TailStart of the pulse length.
func (t *TailOff) Apply(s float32, position int, length float64) float32 {
	if float64(position) <= TailStart*length {
		return s
	}
	s *= t.level
	t.level *= TailDecay
	return s
}

// Accent drives s through tanh with a gain that grows with accent. Accents of
// 0 or below leave s untouched.
func Accent(s float32, accent float32) float32 {
	if accent <= 0 {
		return s
	}
	drive := 1 + math.Log(10*float64(accent)+1)
	return float32(math.Tanh(drive * float64(s)))
}
