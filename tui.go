package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sotto/bridge"
)

const meterWidth = 30

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	recordStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

type eventMsg bridge.Event
type eventsClosedMsg struct{}
type tickMsg time.Time

type tuiModel struct {
	events <-chan bridge.Event

	modelLine  string
	deviceLine string

	recording  bool
	processing bool
	started    time.Time
	elapsed    float64
	level      float64
	lastText   string
	errText    string
	download   string
}

func newTUI(events <-chan bridge.Event, modelLine, deviceLine string) *tea.Program {
	return tea.NewProgram(tuiModel{
		events:     events,
		modelLine:  modelLine,
		deviceLine: deviceLine,
	})
}

func (m tuiModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.listen(), tuiTick())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tickMsg:
		if m.recording {
			m.elapsed = time.Since(m.started).Seconds()
		}
		return m, tuiTick()

	case eventsClosedMsg:
		return m, tea.Quit

	case eventMsg:
		ev := bridge.Event(msg)
		switch ev.Kind {
		case bridge.EventRecordingStarted:
			m.recording = true
			m.processing = false
			m.started = time.Now()
			m.elapsed = 0
			m.level = 0
			m.errText = ""
		case bridge.EventAudioLevel:
			m.level = ev.Level
		case bridge.EventRecordingStopped:
			m.recording = false
			m.level = 0
		case bridge.EventTranscriptionStarted:
			m.processing = true
		case bridge.EventTranscriptionComplete:
			m.processing = false
			m.lastText = ev.Text
			m.errText = ""
		case bridge.EventTranscriptionError:
			m.recording = false
			m.processing = false
			m.errText = ev.Reason
		case bridge.EventDownloadProgress:
			if ev.Total > 0 && ev.Downloaded < ev.Total {
				m.download = fmt.Sprintf("downloading %s: %d%% (%d/%d MB)",
					ev.ModelID, ev.Downloaded*100/ev.Total, ev.Downloaded>>20, ev.Total>>20)
			} else {
				m.download = ""
			}
		}
		return m, m.listen()
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sotto "+version) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("[model: %s | mic: %s]", m.modelLine, m.deviceLine)) + "\n\n")

	switch {
	case m.recording:
		b.WriteString(recordStyle.Render(fmt.Sprintf("● recording %.1fs", m.elapsed)))
		b.WriteString("  " + renderMeter(m.level) + "\n")
	case m.processing:
		b.WriteString(busyStyle.Render("… transcribing") + "\n")
	case m.errText != "":
		b.WriteString(errorStyle.Render("✗ "+m.errText) + "\n")
	case m.lastText != "":
		b.WriteString(okStyle.Render("✓ copied to clipboard") + "\n")
	default:
		b.WriteString(dimStyle.Render("idle") + "\n")
	}

	if m.lastText != "" {
		b.WriteString("\n" + wrapText(m.lastText, 60) + "\n")
	}
	if m.download != "" {
		b.WriteString("\n" + busyStyle.Render(m.download) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("hold ctrl+shift+space to dictate • q to quit") + "\n")
	return b.String()
}

func renderMeter(level float64) string {
	filled := int(level * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
	return meterStyle.Render(bar)
}

func wrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
