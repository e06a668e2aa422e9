package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/roadmap"
)

const dashboardRoadmap = `{
  "Station A": {
    "P1 - Track Works": {
      "stages": [
        {"name": "Survey", "start": "2024-01-01", "end": "2024-01-31", "status": "completed", "milestones": []},
        {"name": "Construction", "start": "2024-02-01", "end": "2024-04-30", "status": "in_progress",
         "milestones": [{"name": "Rails Laid", "date": "2024-05-20", "status": "planned"}]}
      ]
    }
  },
  "Station B": {
    "P2 - Signals": {
      "stages": [
        {"name": "Design", "start": "2024-01-01", "end": "2024-03-31", "status": "delayed", "milestones": []}
      ]
    }
  }
}`

func newTestModel(t *testing.T, content string) *model {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	m := newModel(&config.Config{ProjectRoot: dir}, nil, "data.json")
	m.now = func() time.Time { return time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC) }
	m.Init()
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m *model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func TestModelResolvesRelativePath(t *testing.T) {
	m := newTestModel(t, dashboardRoadmap)
	if !filepath.IsAbs(m.path) {
		t.Errorf("path %q should be absolute", m.path)
	}
	if m.loadErr != nil {
		t.Fatalf("loadErr: %v", m.loadErr)
	}
	if m.data == nil || m.data.StageCount() != 3 {
		t.Fatalf("unexpected data: %+v", m.data)
	}
}

func TestStationsPanel(t *testing.T) {
	m := newTestModel(t, dashboardRoadmap)
	view := m.View()

	for _, want := range []string{"Roadmap Dashboard", "✓ valid", "Station A", "Construction", "Station B", "delayed: 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if !strings.Contains(view, " 50%") {
		t.Errorf("Station A progress missing:\n%s", view)
	}
}

func TestStatusFilter(t *testing.T) {
	m := newTestModel(t, dashboardRoadmap)

	press(m, "3")
	if m.filter != roadmap.StatusDelayed {
		t.Fatalf("filter = %q, want delayed", m.filter)
	}
	view := m.View()
	if !strings.Contains(view, "Filter: delayed") || !strings.Contains(view, "Design") {
		t.Errorf("filtered view:\n%s", view)
	}
	if strings.Contains(view, "Survey") {
		t.Errorf("completed stage should be hidden:\n%s", view)
	}

	press(m, "0")
	if m.filter != "" {
		t.Errorf("filter not cleared: %q", m.filter)
	}
}

func TestPanelsCycle(t *testing.T) {
	m := newTestModel(t, dashboardRoadmap)

	press(m, "tab")
	if m.panel != panelDelays {
		t.Fatalf("panel = %v, want delays", m.panel)
	}
	view := m.View()
	if !strings.Contains(view, "Overdue as of 2024-05-10") {
		t.Errorf("delays header missing:\n%s", view)
	}
	if !strings.Contains(view, "40d") || !strings.Contains(view, "10d") {
		t.Errorf("expected Design (40d) and Construction (10d) overdue:\n%s", view)
	}

	press(m, "tab")
	view = m.View()
	if !strings.Contains(view, "Rails Laid") {
		t.Errorf("milestone missing:\n%s", view)
	}

	press(m, "tab")
	if m.panel != panelStations {
		t.Errorf("panel = %v, want stations after a full cycle", m.panel)
	}
}

func TestHelpAndQuit(t *testing.T) {
	m := newTestModel(t, dashboardRoadmap)

	press(m, "h")
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("help screen not shown")
	}
	press(m, "h")
	if strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("help screen not hidden")
	}

	cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestInvalidRoadmapShowsViolations(t *testing.T) {
	bad := strings.Replace(dashboardRoadmap, `"status": "delayed"`, `"status": "late"`, 1)
	m := newTestModel(t, bad)

	view := m.View()
	if !strings.Contains(view, "1 violation(s)") || !strings.Contains(view, "bad-enum-value") {
		t.Errorf("violations not shown:\n%s", view)
	}
	if !strings.Contains(view, "Station A") {
		t.Errorf("roadmap should still be shown:\n%s", view)
	}
}

func TestRefreshPicksUpChanges(t *testing.T) {
	m := newTestModel(t, dashboardRoadmap)

	if err := os.WriteFile(m.path, []byte(`{"Station A": `), 0644); err != nil {
		t.Fatal(err)
	}
	m.Update(tickMsg(time.Now()))
	if m.loadErr == nil {
		t.Fatal("expected load error after breaking the file")
	}
	if !strings.Contains(m.View(), "Error loading roadmap file") {
		t.Error("load error not shown")
	}

	if err := os.WriteFile(m.path, []byte(dashboardRoadmap), 0644); err != nil {
		t.Fatal(err)
	}
	press(m, "r")
	if m.loadErr != nil || m.data == nil {
		t.Errorf("refresh did not recover: %v", m.loadErr)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "[..........]   0%"},
		{50, "[#####.....]  50%"},
		{100, "[##########] 100%"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.pct, 10); got != tt.want {
			t.Errorf("progressBar(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
