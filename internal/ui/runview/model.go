// Package runview is a Bubble Tea view of a running analysis. It follows
// the pipeline trace and shows which stage is active and what each one
// has produced so far.
package runview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/prism/internal/otel"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#58a6ff"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3fb950"))

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#58a6ff"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#484f58"))
)

// Stages in pipeline order. The name is the event kind prefix.
var Stages = []string{"ingest", "embed", "index", "cluster", "facts", "bias", "summary", "persist"}

// EventMsg carries one trace event into the view.
type EventMsg otel.Event

// DoneMsg ends the view.
type DoneMsg struct {
	Err error
}

type stage struct {
	name    string
	events  int
	count   int
	errs    int
	dur     time.Duration
	lastErr string
}

// Model is the Bubble Tea model for the run view.
type Model struct {
	query   string
	cancel  context.CancelFunc
	spinner spinner.Model
	start   time.Time
	now     func() time.Time

	stages  []stage
	current int // index into stages, -1 before the first event
	done    bool
	err     error
	width   int
}

// New creates a run view for query. cancel, if set, is called when the
// user interrupts.
func New(query string, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = activeStyle

	stages := make([]stage, len(Stages))
	for i, name := range Stages {
		stages[i] = stage{name: name}
	}
	return Model{
		query:   query,
		cancel:  cancel,
		spinner: s,
		start:   time.Now(),
		now:     time.Now,
		stages:  stages,
		current: -1,
		width:   80,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case EventMsg:
		m.apply(otel.Event(msg))
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.current = -1
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one event into the stage table.
func (m *Model) apply(e otel.Event) {
	name, _, _ := strings.Cut(string(e.Kind), ".")
	if name == "store" {
		name = "persist"
	}
	i := stageIndex(name)
	if i < 0 {
		return
	}
	st := &m.stages[i]
	st.events++
	st.dur += e.Dur
	switch {
	case e.Err != "":
		st.errs++
		st.lastErr = e.Err
	case e.Kind == otel.KindEmbedArticle || e.Kind == otel.KindBiasArticle:
		st.count++
	default:
		st.count += e.Count
	}
	m.current = i
}

func stageIndex(name string) int {
	for i, s := range Stages {
		if s == name {
			return i
		}
	}
	return -1
}

// Done reports whether the view has finished.
func (m Model) Done() bool {
	return m.done
}

func (m Model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("Analyzing %q", m.query)
	if !m.done {
		header += " " + m.spinner.View()
	}
	b.WriteString(titleStyle.Render(runewidth.Truncate(header, max(m.width-12, 20), "…")))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s", formatDuration(m.now().Sub(m.start)))))
	b.WriteString("\n\n")

	for i, st := range m.stages {
		b.WriteString(m.renderStage(i, st))
		b.WriteString("\n")
	}

	if m.done && m.err != nil {
		b.WriteString("\n")
		b.WriteString(failedStyle.Render("failed: " + runewidth.Truncate(m.err.Error(), max(m.width-10, 20), "…")))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStage(i int, st stage) string {
	var parts []string
	switch {
	case st.errs > 0 && st.count == 0:
		parts = append(parts, failedStyle.Render("[✗]"))
	case i == m.current:
		parts = append(parts, activeStyle.Render("["+m.spinner.View()+"]"))
	case st.events > 0:
		parts = append(parts, completeStyle.Render("[✓]"))
	default:
		parts = append(parts, dimStyle.Render("[ ]"))
	}

	parts = append(parts, fmt.Sprintf("%-8s", st.name))
	if st.events == 0 {
		return strings.Join(parts, " ")
	}
	parts = append(parts, fmt.Sprintf("n=%d", st.count))
	if st.dur > 0 {
		parts = append(parts, dimStyle.Render(formatDuration(st.dur)))
	}
	if st.errs > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed: %s", st.errs, runewidth.Truncate(st.lastErr, 30, "…"))))
	}
	return strings.Join(parts, " ")
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
