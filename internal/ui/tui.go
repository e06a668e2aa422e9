// Package ui provides the terminal dashboard.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/roadmap-go/internal/chart"
	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/lint"
	"github.com/nibzard/roadmap-go/internal/roadmap"
	"github.com/nibzard/roadmap-go/internal/validate"
)

// DefaultRefresh is how often the dashboard reloads the roadmap file.
const DefaultRefresh = 2 * time.Second

// upcomingWindow bounds the milestones panel.
const upcomingWindow = 30 * 24 * time.Hour

const maxViolations = 5

type panel int

const (
	panelStations panel = iota
	panelDelays
	panelMilestones
	panelCount
)

func (p panel) String() string {
	switch p {
	case panelDelays:
		return "Delays"
	case panelMilestones:
		return "Upcoming Milestones"
	default:
		return "Stations"
	}
}

// filterKeys maps the number keys to status filters.
var filterKeys = map[string]roadmap.Status{
	"1": roadmap.StatusPlanned,
	"2": roadmap.StatusInProgress,
	"3": roadmap.StatusDelayed,
	"4": roadmap.StatusCompleted,
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	activeTab   = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func statusStyle(s roadmap.Status) lipgloss.Style {
	c, ok := chart.Colors[s]
	if !ok {
		return faintStyle
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

// RunTUI starts the dashboard for the roadmap at path.
func RunTUI(ctx context.Context, cfg *config.Config, engine lint.Engine, path string) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newModel(cfg, engine, path)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type model struct {
	path     string
	engine   lint.Engine
	now      func() time.Time
	interval time.Duration

	data    *roadmap.Roadmap
	result  *validate.Result
	loadErr error

	panel    panel
	filter   roadmap.Status
	showHelp bool
}

type tickMsg time.Time

func newModel(cfg *config.Config, engine lint.Engine, path string) *model {
	if !filepath.IsAbs(path) && cfg != nil && cfg.ProjectRoot != "" {
		path = filepath.Join(cfg.ProjectRoot, path)
	}
	return &model{
		path:     path,
		engine:   engine,
		now:      time.Now,
		interval: DefaultRefresh,
	}
}

func (m *model) Init() tea.Cmd {
	m.refresh()
	return tickCmd(m.interval)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			m.refresh()
		case "tab":
			m.panel = (m.panel + 1) % panelCount
		case "shift+tab":
			m.panel = (m.panel + panelCount - 1) % panelCount
		case "h", "?":
			m.showHelp = !m.showHelp
		case "0":
			m.filter = ""
		default:
			if s, ok := filterKeys[key]; ok {
				m.filter = s
			}
		}
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.interval)
	}
	return m, nil
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Roadmap Dashboard") + "\n")
	b.WriteString(faintStyle.Render(m.path) + "\n\n")

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, m.interval)
		return b.String()
	}

	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("Error loading roadmap file:") + "\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
		writeFooter(&b, m.interval)
		return b.String()
	}
	if m.data == nil {
		b.WriteString("Loading...\n\n")
		writeFooter(&b, m.interval)
		return b.String()
	}

	writeValidation(&b, m.result)
	writeTabs(&b, m.panel)
	if m.filter != "" {
		b.WriteString(fmt.Sprintf("Filter: %s (0 to clear)\n\n", statusStyle(m.filter).Render(string(m.filter))))
	}

	switch m.panel {
	case panelDelays:
		m.writeDelays(&b)
	case panelMilestones:
		m.writeMilestones(&b)
	default:
		m.writeStations(&b)
	}
	writeFooter(&b, m.interval)
	return b.String()
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh reloads and validates the roadmap file. A document with
// violations is still shown when it decodes into the typed model.
func (m *model) refresh() {
	doc, err := roadmap.DecodeFile(m.path)
	if err != nil {
		m.loadErr = err
		m.data = nil
		m.result = nil
		return
	}
	if m.engine != nil {
		m.result = m.engine.Validate(doc)
	} else {
		m.result = validate.Validate(doc, validate.Options{})
	}
	data, err := roadmap.FromTree(doc)
	if err != nil {
		m.loadErr = err
		m.data = nil
		return
	}
	m.loadErr = nil
	m.data = data
}

func (m *model) matches(s roadmap.Status) bool {
	return m.filter == "" || s == m.filter
}

func (m *model) writeStations(b *strings.Builder) {
	counts := m.data.StatusCounts()
	b.WriteString(headerStyle.Render("Overview") + "\n\n")
	var parts []string
	for _, s := range roadmap.Statuses() {
		parts = append(parts, statusStyle(s).Render(fmt.Sprintf("%s: %d", s, counts[s])))
	}
	b.WriteString("  " + strings.Join(parts, "  ") + "\n\n")

	shown := 0
	for _, name := range m.data.StationNames() {
		summary, err := m.data.StationStatus(name)
		if err != nil {
			continue
		}
		var lines []string
		for _, p := range summary.Portions {
			for _, st := range p.Stages {
				if !m.matches(st.Status) {
					continue
				}
				lines = append(lines, fmt.Sprintf("    %s %-24s %s..%s  %s",
					statusIcon(st.Status), truncate(st.Name, 24), st.Start, st.End,
					statusStyle(st.Status).Render(string(st.Status))))
			}
		}
		if len(lines) == 0 {
			continue
		}
		shown++
		b.WriteString(fmt.Sprintf("%s  %s\n", headerStyle.Render(name), progressBar(summary.OverallProgress, 20)))
		b.WriteString(strings.Join(lines, "\n") + "\n\n")
	}
	if shown == 0 {
		b.WriteString("  No matching stages.\n\n")
	}
}

func (m *model) writeDelays(b *strings.Builder) {
	asOf := roadmap.WallClock(m.now())
	b.WriteString(headerStyle.Render(fmt.Sprintf("Overdue as of %s", asOf.Format(roadmap.DateLayout))) + "\n\n")
	shown := 0
	for _, d := range m.data.Delays(asOf) {
		if !m.matches(d.CurrentStatus) {
			continue
		}
		shown++
		b.WriteString(fmt.Sprintf("  %4dd  %s / %s / %s  (planned end %s, %s)\n",
			d.DaysOverdue, d.Station, d.Portion, d.Stage, d.PlannedEnd,
			statusStyle(d.CurrentStatus).Render(string(d.CurrentStatus))))
	}
	if shown == 0 {
		b.WriteString(okStyle.Render("  Nothing overdue.") + "\n")
	}
	b.WriteString("\n")
}

func (m *model) writeMilestones(b *strings.Builder) {
	from := m.now()
	to := from.Add(upcomingWindow)
	b.WriteString(headerStyle.Render(fmt.Sprintf("Milestones %s to %s",
		from.Format(roadmap.DateLayout), to.Format(roadmap.DateLayout))) + "\n\n")
	shown := 0
	for _, ms := range m.data.MilestonesInRange(truncateDay(from), truncateDay(to)) {
		if !m.matches(ms.Status) {
			continue
		}
		shown++
		b.WriteString(fmt.Sprintf("  %s %s  %s  (%s / %s / %s)\n",
			statusIcon(ms.Status), ms.Date, ms.Milestone, ms.Station, ms.Portion, ms.Stage))
	}
	if shown == 0 {
		b.WriteString("  No milestones in the next 30 days.\n")
	}
	b.WriteString("\n")
}

func writeValidation(b *strings.Builder, result *validate.Result) {
	if result == nil || result.Valid() {
		b.WriteString(okStyle.Render("✓ valid") + "\n\n")
		return
	}
	b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %d violation(s)", len(result.Violations))) + "\n")
	for i, v := range result.Violations {
		if i == maxViolations {
			b.WriteString(faintStyle.Render(fmt.Sprintf("  ... %d more", len(result.Violations)-maxViolations)) + "\n")
			break
		}
		b.WriteString("  " + v.Error() + "\n")
	}
	b.WriteString("\n")
}

func writeTabs(b *strings.Builder, current panel) {
	var tabs []string
	for p := panel(0); p < panelCount; p++ {
		if p == current {
			tabs = append(tabs, activeTab.Render(p.String()))
		} else {
			tabs = append(tabs, inactiveTab.Render(p.String()))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString(headerStyle.Render("Keyboard Shortcuts") + "\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  r, F5        Reload the roadmap file\n")
	b.WriteString("  tab          Next panel\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  1            Filter by planned\n")
	b.WriteString("  2            Filter by in_progress\n")
	b.WriteString("  3            Filter by delayed\n")
	b.WriteString("  4            Filter by completed\n")
	b.WriteString("  0            Clear filter\n\n")
}

func writeFooter(b *strings.Builder, interval time.Duration) {
	b.WriteString(faintStyle.Render(fmt.Sprintf("Press h for help | tab to switch | q to quit | Reloading every %s", interval)) + "\n")
}

func statusIcon(s roadmap.Status) string {
	switch s {
	case roadmap.StatusCompleted:
		return "x"
	case roadmap.StatusInProgress:
		return ">"
	case roadmap.StatusDelayed:
		return "!"
	default:
		return " "
	}
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), pct)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
