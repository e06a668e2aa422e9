// Package chart renders a roadmap as a self-contained HTML Gantt chart.
package chart

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/nibzard/roadmap-go/internal/roadmap"
)

//go:embed gantt.html.tmpl
var templates embed.FS

var ganttTemplate = template.Must(template.ParseFS(templates, "gantt.html.tmpl"))

// ErrEmpty is returned when the roadmap has no stage with valid dates.
var ErrEmpty = errors.New("roadmap has no datable stages")

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "Station Integration Roadmap"

// Colors maps each status to its bar colour.
var Colors = map[roadmap.Status]string{
	roadmap.StatusCompleted:  "#2ecc71",
	roadmap.StatusInProgress: "#3498db",
	roadmap.StatusPlanned:    "#95a5a6",
	roadmap.StatusDelayed:    "#e74c3c",
}

const unknownColor = "#7f8c8d"

// Options controls rendering.
type Options struct {
	Title string
	// Today positions the "today" marker. Zero means time.Now().
	Today time.Time
}

// Chart is the laid-out chart handed to the template. Positions are
// percentages of the full date range.
type Chart struct {
	Title     string
	From      string
	To        string
	Rows      []Row
	Ticks     []Tick
	Legend    []LegendItem
	ShowToday bool
	TodayPct  float64
	Today     string
}

// Row is one portion of one station.
type Row struct {
	Station string
	Portion string
	// First is set on the first row of each station.
	First      bool
	Bars       []Bar
	Milestones []Marker
}

// Bar is one stage.
type Bar struct {
	Name   string
	Status roadmap.Status
	Color  string
	Start  string
	End    string
	Left   float64
	Width  float64
}

// Marker is one milestone.
type Marker struct {
	Name   string
	Date   string
	Status roadmap.Status
	Color  string
	Left   float64
}

// Tick labels the first day of a month on the time axis.
type Tick struct {
	Label string
	Left  float64
}

// LegendItem pairs a status with its colour.
type LegendItem struct {
	Status roadmap.Status
	Color  string
}

// Build lays out r.
func Build(r *roadmap.Roadmap, opts Options) (*Chart, error) {
	minDate, maxDate, ok := r.DateRange()
	if !ok {
		return nil, ErrEmpty
	}
	// Inclusive end so single-day stages stay visible.
	maxDate = maxDate.AddDate(0, 0, 1)
	span := maxDate.Sub(minDate).Hours()

	pos := func(t time.Time) float64 {
		return clamp(t.Sub(minDate).Hours() / span * 100)
	}

	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	c := &Chart{
		Title: title,
		From:  minDate.Format(roadmap.DateLayout),
		To:    maxDate.AddDate(0, 0, -1).Format(roadmap.DateLayout),
		Today: today.Format(roadmap.DateLayout),
	}
	if !today.Before(minDate) && today.Before(maxDate) {
		c.ShowToday = true
		c.TodayPct = pos(today)
	}

	for _, s := range roadmap.Statuses() {
		c.Legend = append(c.Legend, LegendItem{Status: s, Color: color(s)})
	}

	for t := time.Date(minDate.Year(), minDate.Month(), 1, 0, 0, 0, 0, time.UTC); t.Before(maxDate); t = t.AddDate(0, 1, 0) {
		if t.Before(minDate) {
			continue
		}
		c.Ticks = append(c.Ticks, Tick{Label: t.Format("Jan 2006"), Left: pos(t)})
	}

	lastStation := ""
	for _, ref := range r.Portions() {
		row := Row{Station: ref.Station, Portion: ref.Portion, First: ref.Station != lastStation}
		lastStation = ref.Station

		for _, stage := range r.Stations[ref.Station][ref.Portion].Stages {
			start, err := roadmap.ParseDate(stage.Start)
			if err != nil {
				continue
			}
			end, err := roadmap.ParseDate(stage.End)
			if err != nil {
				continue
			}
			left := pos(start)
			width := pos(end.AddDate(0, 0, 1)) - left
			if width < 0 {
				width = 0
			}
			row.Bars = append(row.Bars, Bar{
				Name:   stage.Name,
				Status: stage.Status,
				Color:  color(stage.Status),
				Start:  stage.Start,
				End:    stage.End,
				Left:   left,
				Width:  width,
			})
			for _, m := range stage.Milestones {
				date, err := roadmap.ParseDate(m.Date)
				if err != nil {
					continue
				}
				row.Milestones = append(row.Milestones, Marker{
					Name:   m.Name,
					Date:   m.Date,
					Status: m.Status,
					Color:  color(m.Status),
					Left:   pos(date),
				})
			}
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

// Render writes the HTML chart for r to w.
func Render(w io.Writer, r *roadmap.Roadmap, opts Options) error {
	c, err := Build(r, opts)
	if err != nil {
		return err
	}
	if err := ganttTemplate.Execute(w, c); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func color(s roadmap.Status) string {
	if c, ok := Colors[s]; ok {
		return c
	}
	return unknownColor
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
