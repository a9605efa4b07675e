package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/chronometro-go"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e8a33d"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e8a33d"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#d55"))
	beatStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555")).Padding(0, 1)
)

// frameInterval is the playhead refresh rate.
const frameInterval = time.Second / 30

// noteCycle is the order the n key steps through.
var noteCycle = []chronometro.NoteValue{
	chronometro.Quarter, chronometro.Eighth, chronometro.Triplet, chronometro.Sixteenth,
	chronometro.Whole, chronometro.Half,
}

// accentSteps are the accent levels the a key cycles through.
var accentSteps = []float32{0, 0.25, 0.5, 0.75, 1}

type frameMsg time.Time

type stateMsg chronometro.StateEvent

type model struct {
	player  *chronometro.Player
	events  <-chan chronometro.StateEvent
	cursor  chronometro.Position
	playing bool
	status  string
	err     error
}

func newModel(pl *chronometro.Player) model {
	return model{player: pl, events: pl.Watch(), playing: pl.IsPlaying()}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func listenForState(events <-chan chronometro.StateEvent) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-events)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), listenForState(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case frameMsg:
		return m, tick()
	case stateMsg:
		m.playing = msg.Playing
		return m, listenForState(m.events)
	}
	return m, nil
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""
	pl := m.player
	switch key {
	case "q", "ctrl+c":
		pl.Stop()
		return m, tea.Quit
	case " ", "p":
		m.err = pl.Toggle()
	case "t":
		if bpm, ok := pl.Tap(); ok {
			m.status = fmt.Sprintf("tap: %.1f bpm", bpm)
		} else {
			m.status = "tap again"
		}
	case "+", "=":
		pl.SetBPM(pl.BPM() + 1)
	case "-", "_":
		pl.SetBPM(pl.BPM() - 1)
	case "]":
		pl.SetGainDB(pl.GainDB() + 1)
	case "[":
		pl.SetGainDB(pl.GainDB() - 1)
	case "left", "h":
		m.moveBeat(-1)
	case "right", "l":
		m.moveBeat(1)
	case "up", "k":
		m.movePulse(-1)
	case "down", "j":
		m.movePulse(1)
	case "enter", "x":
		if p, ok := m.pulse(); ok {
			m.err = pl.SetHit(m.cursor, !p.Hit)
		}
	case "a":
		if p, ok := m.pulse(); ok {
			m.err = pl.SetAccent(m.cursor, nextAccent(p.Accent))
		}
	case "n":
		beat := pl.Pattern()[m.cursor.Beat]
		m.err = pl.SetNoteValue(m.cursor, nextNoteValue(beat.NoteValue))
	case "i":
		m.err = pl.InsertPulse(m.cursor)
	case "d":
		m.err = pl.ErasePulse(m.cursor)
	}
	m.clampCursor()
	if errors.Is(m.err, chronometro.ErrPlaying) {
		m.err = errors.New("stop playback to add or remove pulses")
	}
	return m, nil
}

func (m *model) moveBeat(d int) {
	n := m.player.NumBeats()
	m.cursor.Beat = (m.cursor.Beat + d + n) % n
	m.clampCursor()
}

func (m *model) movePulse(d int) {
	m.cursor.Pulse += d
	m.clampCursor()
}

// clampCursor keeps the cursor inside the selected beat's active pulses.
func (m *model) clampCursor() {
	beats := m.player.Pattern()
	if m.cursor.Beat >= len(beats) {
		m.cursor.Beat = len(beats) - 1
	}
	n := len(beats[m.cursor.Beat].Pulses)
	m.cursor.Pulse = max(0, min(m.cursor.Pulse, n-1))
}

func (m model) pulse() (chronometro.PulseView, bool) {
	beats := m.player.Pattern()
	if m.cursor.Beat >= len(beats) || m.cursor.Pulse >= len(beats[m.cursor.Beat].Pulses) {
		return chronometro.PulseView{}, false
	}
	return beats[m.cursor.Beat].Pulses[m.cursor.Pulse], true
}

func nextAccent(a float32) float32 {
	for _, s := range accentSteps {
		if s > a+0.01 {
			return s
		}
	}
	return accentSteps[0]
}

func nextNoteValue(nv chronometro.NoteValue) chronometro.NoteValue {
	for i, v := range noteCycle {
		if v == nv {
			return noteCycle[(i+1)%len(noteCycle)]
		}
	}
	return noteCycle[0]
}

func (m model) View() string {
	pl := m.player
	state := "STOP"
	if m.playing {
		state = "PLAY"
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("chronometro"))
	b.WriteString(statusStyle.Render(fmt.Sprintf("  %s  %5.1f bpm  %5.1f dB", state, pl.BPM(), pl.GainDB())))
	b.WriteString("\n\n")

	playhead, playing := pl.Position()
	beats := pl.Pattern()
	cols := make([]string, len(beats))
	for bi, beat := range beats {
		var col strings.Builder
		col.WriteString(dimStyle.Render(fmt.Sprintf("%d %s", bi+1, beat.NoteValue)))
		for pi, p := range beat.Pulses {
			col.WriteString("\n")
			pos := chronometro.Position{Beat: bi, Pulse: pi}
			cell := pulseCell(p)
			switch {
			case playing && pos == playhead:
				cell = playheadStyle.Render(cell)
			case pos == m.cursor:
				cell = cursorStyle.Render(cell)
			}
			col.WriteString(cell)
		}
		cols[bi] = beatStyle.Render(col.String())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	case pl.SoundError() != nil:
		b.WriteString(errorStyle.Render("sample unavailable: " + pl.SoundError().Error()))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space:start/stop  t:tap  +/-:bpm  [/]:gain  arrows:select  x:hit  a:accent  n:note  i/d:insert/delete  q:quit"))
	return b.String()
}

func pulseCell(p chronometro.PulseView) string {
	if !p.Hit {
		return dimStyle.Render("·    ")
	}
	bar := strings.Repeat("▮", int(p.Accent*4+0.5))
	return activeStyle.Render("●") + accentStyle.Render(fmt.Sprintf("%-4s", bar))
}
