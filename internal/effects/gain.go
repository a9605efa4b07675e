package effects

import (
	"math"
	"sync/atomic"
)

const (
	MinGainDB = -60.0
	MaxGainDB = 0.0
)

// DefaultGainDB is a linear output level of 0.3.
var DefaultGainDB = linearToDB(0.3)

// Gain is the output level. The target is set lock-free from the control
// side; each block ramps linearly from the previous block's level to the
// target so level changes do not click.
type Gain struct {
	target  atomic.Uint32 // float32 bit pattern, linear
	current float32
}

func NewGain(db float64) *Gain {
	g := &Gain{}
	g.SetDB(db)
	g.current = g.Target()
	return g
}

// ClampGainDB limits db to [MinGainDB, MaxGainDB].
func ClampGainDB(db float64) float64 {
	if math.IsNaN(db) || db < MinGainDB {
		return MinGainDB
	}
	if db > MaxGainDB {
		return MaxGainDB
	}
	return db
}

// SetDB sets the target level in decibels. Safe to call from any goroutine.
func (g *Gain) SetDB(db float64) {
	g.target.Store(math.Float32bits(float32(dbToLinear(ClampGainDB(db)))))
}

// DB returns the target level in decibels.
func (g *Gain) DB() float64 {
	return ClampGainDB(linearToDB(float64(g.Target())))
}

// Target is the linear level being ramped towards.
func (g *Gain) Target() float32 {
	return math.Float32frombits(g.target.Load())
}

// ProcessBlock scales interleaved stereo frames, ramping across the block.
func (g *Gain) ProcessBlock(dst []float32) {
	frames := len(dst) / 2
	if frames == 0 {
		return
	}
	target := g.Target()
	if target == g.current {
		for i := range dst {
			dst[i] *= target
		}
		return
	}
	step := (target - g.current) / float32(frames)
	level := g.current
	for i := 0; i+1 < len(dst); i += 2 {
		level += step
		dst[i] *= level
		dst[i+1] *= level
	}
	g.current = target
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func linearToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
