// Package effects post-processes the metronome output: an optional chain of
// stereo effects followed by the output gain.
package effects

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEffect = errors.New("effects: unknown effect type")

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

// ProcessBlock runs every frame of dst through the chain.
func (c *Chain) ProcessBlock(dst []float32) {
	if c == nil || len(c.effects) == 0 {
		return
	}
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = c.Process(dst[i], dst[i+1])
	}
}

// Reset clears every effect's internal state.
func (c *Chain) Reset() {
	if c == nil {
		return
	}
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.effects)
}

// Spec describes one effect by type name and numeric parameters. Missing
// parameters take the effect's defaults.
type Spec struct {
	Type   string
	Params map[string]float64
}

// Build constructs a chain from specs in order.
func Build(specs []Spec, sampleRate int) (*Chain, error) {
	c := NewChain()
	for i, s := range specs {
		e, err := build(s, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("effects: entry %d: %w", i, err)
		}
		c.Add(e)
	}
	return c, nil
}

func build(s Spec, sampleRate int) (Effector, error) {
	p := params(s.Params)
	switch strings.ToLower(s.Type) {
	case "delay":
		return NewDelay(sampleRate,
			p.get("time", 0.25),
			float32(p.get("feedback", 0.35)),
			float32(p.get("wet", 0.3)),
		), nil
	case "compressor":
		return NewCompressor(sampleRate,
			p.get("threshold_db", -18),
			p.get("ratio", 4),
			p.get("attack_ms", 2),
			p.get("release_ms", 80),
			p.get("makeup_db", 3),
		), nil
	case "room":
		return NewRoom(sampleRate,
			float32(p.get("size", 0.4)),
			float32(p.get("decay", 0.6)),
			float32(p.get("wet", 0.2)),
		), nil
	case "tone":
		return NewTone(sampleRate,
			p.get("low_db", 0),
			p.get("high_db", 0),
			p.get("low_hz", 250),
			p.get("high_hz", 4000),
		), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, s.Type)
}

type params map[string]float64

func (p params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
