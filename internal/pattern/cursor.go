package pattern

// Begin is the first pulse of the first beat.
func (m *Metre) Begin() Position { return Position{} }

// End is slot 0 of the sentinel beat. It is never a playable position.
func (m *Metre) End() Position { return Position{Beat: m.NumBeats()} }

// At returns the live pulse at p, or nil for the end position and anything
// outside the active windows.
func (m *Metre) At(p Position) *Pulse {
	beat := m.Beat(p.Beat)
	if beat == nil || p.Pulse < 0 || p.Pulse >= beat.ActivePulses() {
		return nil
	}
	return &beat.pulses[p.Pulse]
}

// Next returns the position after p. The beat boundary is read from the pulse
// at p when Next is called, so a subdivision change is honoured on the very
// next step. Stepping off the last beat wraps to Begin.
func (m *Metre) Next(p Position) Position {
	beat := m.Beat(p.Beat)
	if beat == nil {
		return m.Begin()
	}
	slot := p.Pulse
	if slot < 0 || slot >= MaxPulses {
		slot = 0
	}
	boundary := beat.pulses[slot].noteValue.PulseCount()
	if p.Pulse+1 < boundary {
		return Position{Beat: p.Beat, Pulse: p.Pulse + 1}
	}
	if p.Beat+1 >= m.NumBeats() {
		return m.Begin()
	}
	return Position{Beat: p.Beat + 1}
}

// Cursor is the position of the pulse currently sounding.
func (m *Metre) Cursor() Position { return m.cur }

// Current dereferences the cursor; nil when it is parked on End.
func (m *Metre) Current() *Pulse { return m.At(m.cur) }

// AtEnd reports whether the cursor is parked on the end position.
func (m *Metre) AtEnd() bool { return m.cur == m.End() }

// Advance moves the cursor to the next pulse.
func (m *Metre) Advance() Position {
	m.cur = m.Next(m.cur)
	return m.cur
}

// Park moves the cursor onto the end position; nothing sounds until Reset.
func (m *Metre) Park() { m.cur = m.End() }
