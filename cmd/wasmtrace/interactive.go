package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boundaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	callStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	hostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	trapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// header and footer lines around the viewport
const chromeHeight = 4

type viewerModel struct {
	filter   textinput.Model
	viewport viewport.Model
	title    string
	entries  []trace.Entry
	lines    []string
}

func newViewerModel(title string, entries []trace.Entry) *viewerModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "func, kind or value"
	ti.Width = 40

	m := &viewerModel{
		filter:   ti,
		viewport: viewport.New(80, 20),
		title:    title,
		entries:  entries,
		lines:    trace.Lines(entries),
	}
	m.refresh()
	return m
}

func (m *viewerModel) Init() tea.Cmd {
	return nil
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				m.filter.Blur()
				return m, nil
			case "esc":
				m.filter.SetValue("")
				m.filter.Blur()
				m.refresh()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.refresh()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "/":
			return m, m.filter.Focus()
		case "esc":
			m.filter.SetValue("")
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// visible returns the indices of the entries matching the filter.
// Boundaries always match.
func (m *viewerModel) visible() []int {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	idx := make([]int, 0, len(m.entries))
	for i, e := range m.entries {
		if query == "" || e.Kind == trace.KindBoundary || strings.Contains(strings.ToLower(m.lines[i]), query) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (m *viewerModel) refresh() {
	var b strings.Builder
	for n, i := range m.visible() {
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(styleLine(m.entries[i], m.lines[i]))
	}
	m.viewport.SetContent(b.String())
}

func (m *viewerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Trace"))
	b.WriteString(" ")
	b.WriteString(m.title)
	fmt.Fprintf(&b, "  %d/%d entries", len(m.visible()), len(m.entries))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString("No entries recorded.")
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n\n")

	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString(" ")
	}
	b.WriteString(helpStyle.Render("↑/↓ scroll • / filter • esc clear • q quit"))

	return b.String()
}

func styleLine(e trace.Entry, line string) string {
	switch e.Kind {
	case trace.KindBoundary:
		return boundaryStyle.Render(line)
	case trace.KindCall, trace.KindReturn:
		return callStyle.Render(line)
	case trace.KindHostCall, trace.KindHostReturn:
		return hostStyle.Render(line)
	case trace.KindTrap:
		return trapStyle.Render(line)
	}
	return line
}

// renderStyled is the coloured text form of the trace for terminals
func renderStyled(tracer *trace.Tracer) string {
	entries := tracer.Entries()
	lines := trace.Lines(entries)

	var b strings.Builder
	for i, e := range entries {
		b.WriteString(styleLine(e, lines[i]))
		b.WriteByte('\n')
	}
	return b.String()
}

func runInteractive(title string, tracer *trace.Tracer) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.Unsupported(errors.PhaseRuntime, "interactive mode requires a terminal on stdout")
	}
	p := tea.NewProgram(newViewerModel(title, tracer.Entries()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
