package pattern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPulseCount(t *testing.T) {
	cases := map[NoteValue]int{
		Whole:     1,
		Half:      1,
		Quarter:   1,
		Eighth:    2,
		Triplet:   3,
		Sixteenth: 4,
	}
	for nv, want := range cases {
		require.Equal(t, want, nv.PulseCount(), nv.String())
	}
}

func TestFinerAndCoarser(t *testing.T) {
	nv, ok := Quarter.Finer()
	require.True(t, ok)
	require.Equal(t, Eighth, nv)
	nv, ok = Whole.Finer()
	require.True(t, ok)
	require.Equal(t, Eighth, nv)
	_, ok = Sixteenth.Finer()
	require.False(t, ok)

	nv, ok = Sixteenth.Coarser()
	require.True(t, ok)
	require.Equal(t, Triplet, nv)
	nv, ok = Eighth.Coarser()
	require.True(t, ok)
	require.Equal(t, Quarter, nv)
	_, ok = Quarter.Coarser()
	require.False(t, ok)
	_, ok = Half.Coarser()
	require.False(t, ok)
}

func TestNormalizeNoteValue(t *testing.T) {
	require.Equal(t, Quarter, NormalizeNoteValue(Quarter))
	require.Equal(t, Half, NormalizeNoteValue(3), "ties go to the coarser value")
	require.Equal(t, Eighth, NormalizeNoteValue(9))
	require.Equal(t, Triplet, NormalizeNoteValue(13))
	require.Equal(t, Whole, NormalizeNoteValue(0))
	for _, nv := range NoteValues() {
		require.True(t, nv.Valid())
	}
	require.False(t, NoteValue(5).Valid())
	require.Equal(t, "NoteValue(5)", NoteValue(5).String())
}
