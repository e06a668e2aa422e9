package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/roadmap-go/internal/roadmap"
)

func sample() *roadmap.Roadmap {
	return &roadmap.Roadmap{
		Stations: map[string]roadmap.Station{
			"Station A": {
				"P1 - Track": {Stages: []roadmap.Stage{
					{Name: "Survey", Start: "2024-01-01", End: "2024-01-31", Status: roadmap.StatusCompleted,
						Milestones: []roadmap.Milestone{{Name: "Report", Date: "2024-01-20", Status: roadmap.StatusCompleted}}},
					{Name: "Build <fast>", Start: "2024-02-01", End: "2024-03-31", Status: roadmap.StatusDelayed},
				}},
				"P2 - Power": {Stages: []roadmap.Stage{
					{Name: "Cabling", Start: "2024-02-15", End: "2024-03-15", Status: roadmap.StatusPlanned},
				}},
			},
			"Station B": {
				"P1 - Signals": {Stages: []roadmap.Stage{
					{Name: "Install", Start: "2024-03-01", End: "2024-03-31", Status: roadmap.StatusInProgress},
				}},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	today := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	c, err := Build(sample(), Options{Today: today})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if c.Title != DefaultTitle {
		t.Errorf("Title = %q", c.Title)
	}
	if c.From != "2024-01-01" || c.To != "2024-03-31" {
		t.Errorf("range = %s..%s", c.From, c.To)
	}
	if len(c.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(c.Rows))
	}
	if !c.Rows[0].First || c.Rows[1].First || !c.Rows[2].First {
		t.Errorf("station grouping wrong: %+v", c.Rows)
	}
	if c.Rows[0].Bars[0].Left != 0 {
		t.Errorf("first bar should start at 0, got %v", c.Rows[0].Bars[0].Left)
	}
	last := c.Rows[0].Bars[1]
	if got := last.Left + last.Width; got < 99.99 || got > 100.01 {
		t.Errorf("last bar should end at 100, got %v", got)
	}
	if last.Color != "#e74c3c" {
		t.Errorf("delayed colour = %s", last.Color)
	}
	if len(c.Rows[0].Milestones) != 1 {
		t.Errorf("milestones = %d, want 1", len(c.Rows[0].Milestones))
	}
	if !c.ShowToday || c.Today != "2024-02-01" {
		t.Errorf("today marker = %v %s", c.ShowToday, c.Today)
	}
	if c.Ticks[0].Label != "Jan 2024" || len(c.Ticks) != 3 {
		t.Errorf("ticks = %+v", c.Ticks)
	}
}

func TestBuildTodayOutsideRange(t *testing.T) {
	c, err := Build(sample(), Options{Today: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	if c.ShowToday {
		t.Error("today marker should be hidden outside the range")
	}
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(&roadmap.Roadmap{}, Options{})
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, sample(), Options{Title: "Line 4", Today: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>Line 4</title>",
		"Station A",
		"P2 - Power",
		"#2ecc71",
		"#3498db",
		"#95a5a6",
		"#e74c3c",
		`class="today"`,
		"Build &lt;fast&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<fast>") {
		t.Error("stage names must be escaped")
	}
}
