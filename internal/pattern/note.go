package pattern

import "strconv"

// NoteValue is the subdivision a beat is played in: how many notes of this
// value fit in a whole note.
type NoteValue int

const (
	Whole     NoteValue = 1
	Half      NoteValue = 2
	Quarter   NoteValue = 4
	Eighth    NoteValue = 8
	Triplet   NoteValue = 12
	Sixteenth NoteValue = 16
)

// BaseNoteValue is the note value of one beat.
const BaseNoteValue = Quarter

// MaxPulses is the number of pulse slots a beat owns.
const MaxPulses = int(Sixteenth / BaseNoteValue)

var noteValues = [...]NoteValue{Whole, Half, Quarter, Eighth, Triplet, Sixteenth}

// NoteValues lists the valid note values from coarsest to finest.
func NoteValues() []NoteValue {
	out := make([]NoteValue, len(noteValues))
	copy(out, noteValues[:])
	return out
}

func (n NoteValue) Valid() bool {
	for _, v := range noteValues {
		if v == n {
			return true
		}
	}
	return false
}

func (n NoteValue) String() string {
	switch n {
	case Whole:
		return "whole"
	case Half:
		return "half"
	case Quarter:
		return "quarter"
	case Eighth:
		return "eighth"
	case Triplet:
		return "triplet"
	case Sixteenth:
		return "sixteenth"
	}
	return "NoteValue(" + strconv.Itoa(int(n)) + ")"
}

// PulseCount is the size of a beat's active window at this note value.
// Values coarser than the beat still sound as one (long) pulse.
func (n NoteValue) PulseCount() int {
	c := int(n) / int(BaseNoteValue)
	if c < 1 {
		return 1
	}
	if c > MaxPulses {
		return MaxPulses
	}
	return c
}

// NormalizeNoteValue maps n to the nearest valid note value; ties go to the
// coarser value.
func NormalizeNoteValue(n NoteValue) NoteValue {
	best := noteValues[0]
	bestDist := absInt(int(n) - int(best))
	for _, v := range noteValues[1:] {
		if d := absInt(int(n) - int(v)); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// Finer returns the note value whose active window is one pulse larger.
func (n NoteValue) Finer() (NoteValue, bool) {
	want := n.PulseCount() + 1
	for _, v := range noteValues {
		if int(v)/int(BaseNoteValue) == want {
			return v, true
		}
	}
	return n, false
}

// Coarser returns the note value whose active window is one pulse smaller.
func (n NoteValue) Coarser() (NoteValue, bool) {
	want := n.PulseCount() - 1
	if want < 1 {
		return n, false
	}
	for _, v := range noteValues {
		if int(v)/int(BaseNoteValue) == want {
			return v, true
		}
	}
	return n, false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
