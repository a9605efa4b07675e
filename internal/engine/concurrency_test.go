package engine

import (
	"sync"
	"testing"

	"github.com/cbegin/chronometro-go/internal/pattern"
)

// Edits race the render goroutine; run with -race.
func TestLiveEditsAgainstRender(t *testing.T) {
	e := newPrepared(t)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	values := pattern.NoteValues()

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		buf := make([]float32, 256*2)
		for i := 0; i < 5000; i++ {
			e.Process(buf)
		}
	}()

	for i := 0; ; i++ {
		select {
		case <-done:
			wg.Wait()
			st := e.Stats()
			if st.BoundaryFaults != 0 {
				t.Fatalf("boundary faults = %d", st.BoundaryFaults)
			}
			t.Logf("%d edits, %d skipped blocks", i, st.SkippedBlocks)
			return
		default:
		}
		pos := pattern.Position{Beat: i % e.NumBeats(), Pulse: i % pattern.MaxPulses}
		e.SetNoteValue(pos, values[i%len(values)])
		e.SetHit(pos, i%3 != 0)
		e.SetAccent(pos, float32(i%5)/4)
		if p, ok := e.Position(); ok && (p.Beat < 0 || p.Beat >= e.NumBeats() || p.Pulse >= pattern.MaxPulses) {
			t.Fatalf("position out of range: %+v", p)
		}
	}
}
