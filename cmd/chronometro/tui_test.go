package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/chronometro-go"
)

func testModel(t *testing.T) model {
	t.Helper()
	pl, err := chronometro.NewPlayer(48000,
		chronometro.WithoutAudioOutput(),
		chronometro.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pl.Close() })
	return newModel(pl)
}

func press(t *testing.T, m model, keys ...tea.KeyMsg) model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	m := testModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.player.IsPlaying() {
		t.Fatal("space should start playback")
	}
	m = press(t, m, runes("p"))
	if m.player.IsPlaying() {
		t.Fatal("p should stop playback")
	}
}

func TestTempoAndGainKeys(t *testing.T) {
	m := testModel(t)
	m = press(t, m, runes("+"), runes("+"), runes("-"))
	if got := m.player.BPM(); got != 121 {
		t.Fatalf("bpm = %v, want 121", got)
	}
	before := m.player.GainDB()
	m = press(t, m, runes("["))
	if got := m.player.GainDB(); got >= before {
		t.Fatalf("gain %v did not drop from %v", got, before)
	}
}

func TestCursorWrapsAndClamps(t *testing.T) {
	m := testModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.cursor.Beat != 3 {
		t.Fatalf("beat = %d, want wrap to 3", m.cursor.Beat)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor.Pulse != 0 {
		t.Fatalf("pulse = %d, want 0 on a quarter beat", m.cursor.Pulse)
	}
}

func TestEditKeys(t *testing.T) {
	m := testModel(t)
	m = press(t, m, runes("n"))
	if got := m.player.Pattern()[0].NoteValue; got != chronometro.Eighth {
		t.Fatalf("note value = %v, want eighth", got)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, runes("x"), runes("a"))
	beat := m.player.Pattern()[0]
	if beat.Pulses[1].Hit {
		t.Fatal("x should mute the selected pulse")
	}
	if beat.Pulses[1].Accent != 0.25 && beat.Pulses[1].Accent != 0.5 {
		t.Fatalf("accent = %v, want one step up", beat.Pulses[1].Accent)
	}
	m = press(t, m, runes("d"))
	if n := len(m.player.Pattern()[0].Pulses); n != 1 {
		t.Fatalf("pulses = %d after delete", n)
	}
	if m.cursor.Pulse != 0 {
		t.Fatalf("cursor pulse = %d, want clamped to 0", m.cursor.Pulse)
	}
}

func TestInsertWhilePlayingShowsError(t *testing.T) {
	m := testModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, runes("i"))
	if m.err == nil {
		t.Fatal("expected an error message")
	}
	if !strings.Contains(m.View(), "stop playback") {
		t.Fatal("view should show the error")
	}
}

func TestStateEventUpdatesModel(t *testing.T) {
	m := testModel(t)
	if strings.Contains(m.View(), "PLAY") {
		t.Fatal("stopped model shows PLAY")
	}
	next, cmd := m.Update(stateMsg{Playing: true})
	if !next.(model).playing || cmd == nil {
		t.Fatal("state event should update the model and keep listening")
	}
	if !strings.Contains(next.(model).View(), "PLAY") {
		t.Fatal("view should follow the state event")
	}
}

func TestQuitStops(t *testing.T) {
	m := testModel(t)
	m.player.Start()
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
	if m.player.IsPlaying() {
		t.Fatal("q should stop playback")
	}
}

func TestNextAccentWraps(t *testing.T) {
	if got := nextAccent(1); got != 0 {
		t.Fatalf("nextAccent(1) = %v", got)
	}
	if got := nextAccent(0.3); got != 0.5 {
		t.Fatalf("nextAccent(0.3) = %v", got)
	}
}
