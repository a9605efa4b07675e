package effects

// Room is a small Schroeder reverb: four parallel combs into two allpasses.
// It gives the dry click some space without smearing the beat.
type Room struct {
	combs   [4]comb
	allpass [2]allpass
	wet     float32
}

type comb struct {
	buf []float32
	pos int
	fb  float32
}

type allpass struct {
	buf []float32
	pos int
}

// Comb lengths relative to the base length; mutually prime-ish.
var roomCombRatios = [4]float32{1, 1.117, 1.271, 1.437}

// NewRoom creates a room. size in [0, 1] scales the comb lengths up to 50ms;
// decay in [0, 0.95] is the comb feedback.
func NewRoom(sampleRate int, size, decay, wet float32) *Room {
	base := float32(sampleRate) * clamp(size, 0, 1) * 0.05
	if base < 16 {
		base = 16
	}
	r := &Room{wet: clamp(wet, 0, 1)}
	fb := clamp(decay, 0, 0.95)
	for i := range r.combs {
		r.combs[i] = comb{buf: make([]float32, int(base*roomCombRatios[i])), fb: fb}
	}
	r.allpass[0] = allpass{buf: make([]float32, max(1, int(base*0.347)))}
	r.allpass[1] = allpass{buf: make([]float32, max(1, int(base*0.213)))}
	return r
}

func (r *Room) Process(l, rr float32) (float32, float32) {
	in := (l + rr) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].step(in)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].step(out)
	}
	dry := 1 - r.wet
	return l*dry + out*r.wet, rr*dry + out*r.wet
}

func (r *Room) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *comb) step(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	if c.pos++; c.pos == len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) step(in float32) float32 {
	delayed := a.buf[a.pos]
	a.buf[a.pos] = in + delayed*0.5
	if a.pos++; a.pos == len(a.buf) {
		a.pos = 0
	}
	return delayed - in
}
