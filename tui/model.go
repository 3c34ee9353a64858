package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-harmony/sequencer"
	"go-harmony/theme"
	"go-harmony/widgets"
)

// Player is the part of the scheduler the monitor controls.
type Player interface {
	Pause()
	Resume()
	Paused() bool
}

type Model struct {
	Player   Player
	Updates  <-chan sequencer.Status
	Theme    *theme.Theme
	Source   string // what drives the music, e.g. the game address
	Quit     func() // called once when the user quits
	status   sequencer.Status
	seen     bool
	history  []float64 // intensity per measure, newest last
	quitting bool
	showHelp bool
}

type UpdateMsg sequencer.Status

type closedMsg struct{}

const historyLen = 32

func NewModel(player Player, updates <-chan sequencer.Status, th *theme.Theme) Model {
	return Model{
		Player:  player,
		Updates: updates,
		Theme:   th,
	}
}

func ListenForUpdates(updates <-chan sequencer.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return UpdateMsg(st)
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.Quit != nil {
				m.Quit()
			}
			return m, tea.Quit

		case "p", " ":
			if m.Player == nil {
				break
			}
			if m.Player.Paused() {
				m.Player.Resume()
			} else {
				m.Player.Pause()
			}

		case "?":
			m.showHelp = !m.showHelp
		}

	case UpdateMsg:
		m.status = sequencer.Status(msg)
		m.seen = true
		m.history = append(m.history, m.status.Intensity)
		if len(m.history) > historyLen {
			m.history = m.history[len(m.history)-historyLen:]
		}
		return m, ListenForUpdates(m.Updates)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.status
	sym := m.Theme.Symbols

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	labelStyle := lipgloss.NewStyle().Foreground(m.Theme.FG()).Width(10)
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	state := string(sym.Playing) + " PLAY"
	switch {
	case !m.seen:
		state = "  WAIT"
	case !st.Connected:
		state = warnStyle.Render(string(sym.Disconnected) + " LOST")
	case st.Paused || (m.Player != nil && m.Player.Paused()):
		state = warnStyle.Render(string(sym.Paused) + " PAUSE")
	}

	session := st.Session
	if len(session) > 8 {
		session = session[:8]
	}
	header := headerStyle.Render(fmt.Sprintf("go-harmony  %s  %3.0fbpm  measure:%04d  %s", state, st.BPM, st.Measure, session))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	if m.Source != "" {
		out.WriteString(dimStyle.Render(m.Source))
		out.WriteString("\n")
	}
	out.WriteString("\n")

	row := func(label, value string) {
		out.WriteString(labelStyle.Render(label))
		out.WriteString(value)
		out.WriteString("\n")
	}
	row("chord", st.Chord)
	row("scale", st.Scale)
	row("intensity", widgets.RenderBar(st.Intensity, 20, sym.BarFull, sym.BarEmpty, m.Theme.RGB(st.Intensity))+fmt.Sprintf(" %.2f", st.Intensity))
	row("history", m.sparkline())
	row("lead", st.Lead)
	row("bass", st.Bass)
	row("drums", st.Drums)

	if len(st.Themes) == 0 {
		row("themes", dimStyle.Render("none"))
	} else {
		for i, p := range st.Themes {
			label := ""
			if i == 0 {
				label = "themes"
			}
			name := fmt.Sprintf("%c %s", sym.Theme, filepath.Base(p))
			if i < len(st.Programs) {
				name += "  " + dimStyle.Render(st.Programs[i])
			}
			row(label, name)
		}
	}
	row("channels", m.channelLights())
	row("events", fmt.Sprintf("%d  skipped %d", st.Events, st.Skipped))

	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{{
			Title: "Keys",
			Keys: []widgets.KeyBinding{
				{Key: "p, space", Desc: "pause or resume"},
				{Key: "?", Desc: "toggle this help"},
				{Key: "q", Desc: "quit"},
			},
		}})))
	} else {
		out.WriteString(dimStyle.Render("p:pause  ?:help  q:quit"))
	}
	return out.String()
}

// channelLights shows the 16 MIDI channels, brighter for busier channels.
func (m Model) channelLights() string {
	peak := 0
	for _, n := range m.status.Channels {
		peak = max(peak, n)
	}
	var out strings.Builder
	for ch, n := range m.status.Channels {
		if ch > 0 {
			out.WriteString(" ")
		}
		if n == 0 {
			out.WriteString(widgets.RenderPad(m.Theme.RGB(0), m.Theme.Symbols.ChannelOff))
			continue
		}
		out.WriteString(widgets.RenderPad(m.Theme.RGB(0.3+0.7*float64(n)/float64(peak)), m.Theme.Symbols.ChannelOn))
	}
	return out.String()
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func (m Model) sparkline() string {
	var b strings.Builder
	for _, v := range m.history {
		v = min(max(v, 0), 1)
		i := int(v * float64(len(sparkRunes)-1))
		b.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Color(v)).Render(string(sparkRunes[i])))
	}
	return b.String()
}
