package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/roadmap"
)

// now is the reference clock for date defaults; tests pin it.
var now = time.Now

// loadRoadmap decodes and validates path, then builds the typed model.
// Queries refuse documents with violations.
func loadRoadmap(cfg *config.Config, path string) (*roadmap.Roadmap, error) {
	doc, err := roadmap.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(doc).Err(); err != nil {
		return nil, fmt.Errorf("%s is invalid (run roadmap validate): %w", path, err)
	}
	return roadmap.FromTree(doc)
}

// queryFlags holds the flags shared by every query command.
type queryFlags struct {
	fs     *flag.FlagSet
	file   *string
	asJSON *bool
}

func newQueryFlags(name string) *queryFlags {
	fs := flag.NewFlagSet("roadmap "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &queryFlags{
		fs:     fs,
		file:   fs.String("f", "", "Roadmap file (defaults to the configured file)"),
		asJSON: fs.Bool("json", false, "Print JSON instead of a table"),
	}
}

func (q *queryFlags) load(cfg *config.Config) (*roadmap.Roadmap, error) {
	return loadRoadmap(cfg, resolvePath(cfg, *q.file))
}

// statusCommand prints stage progress for one or all stations.
func statusCommand(cfg *config.Config, args []string) error {
	q := newQueryFlags("status")
	if err := q.fs.Parse(args); err != nil {
		return err
	}
	remaining := q.fs.Args()
	if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}

	rm, err := q.load(cfg)
	if err != nil {
		return err
	}

	names := rm.StationNames()
	if len(remaining) == 1 {
		names = remaining
	}

	var summaries []*roadmap.StationSummary
	for _, name := range names {
		summary, err := rm.StationStatus(name)
		if errors.Is(err, roadmap.ErrStationNotFound) {
			return fmt.Errorf("%w: %q (known: %v)", roadmap.ErrStationNotFound, name, rm.StationNames())
		}
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}

	if *q.asJSON {
		return writeJSON(stdout, summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(stdout, "%s (%.0f%% complete)\n", s.Station, s.OverallProgress)
		t := newTable("Portion", "Stage", "Start", "End", "Status")
		for _, p := range s.Portions {
			for _, st := range p.Stages {
				t.Row(p.Portion, st.Name, st.Start, st.End, string(st.Status))
			}
		}
		fmt.Fprintln(stdout, t.Render())
		fmt.Fprintln(stdout)
	}
	return nil
}

// milestonesCommand lists milestones dated within [from, to].
func milestonesCommand(cfg *config.Config, args []string) error {
	q := newQueryFlags("milestones")
	from := q.fs.String("from", "", "Start date (YYYY-MM-DD, required)")
	to := q.fs.String("to", "", "End date (YYYY-MM-DD, required)")
	if err := q.fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		return fmt.Errorf("milestones requires -from and -to")
	}
	fromDate, err := roadmap.ParseDate(*from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	toDate, err := roadmap.ParseDate(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	if toDate.Before(fromDate) {
		return fmt.Errorf("-to %s is before -from %s", *to, *from)
	}

	rm, err := q.load(cfg)
	if err != nil {
		return err
	}
	milestones := rm.MilestonesInRange(fromDate, toDate)

	if *q.asJSON {
		if milestones == nil {
			milestones = []roadmap.MilestoneRef{}
		}
		return writeJSON(stdout, milestones)
	}
	if len(milestones) == 0 {
		fmt.Fprintf(stdout, "No milestones between %s and %s.\n", *from, *to)
		return nil
	}
	t := newTable("Date", "Milestone", "Status", "Station", "Portion", "Stage")
	for _, m := range milestones {
		t.Row(m.Date, m.Milestone, string(m.Status), m.Station, m.Portion, m.Stage)
	}
	fmt.Fprintln(stdout, t.Render())
	return nil
}

// delaysCommand lists stages past their planned end.
func delaysCommand(cfg *config.Config, args []string) error {
	q := newQueryFlags("delays")
	asOf := q.fs.String("as-of", "", "Reference date (YYYY-MM-DD, default today)")
	limit := q.fs.Int("n", 0, "Show at most n stages (0 = all)")
	if err := q.fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return fmt.Errorf("-n must be non-negative")
	}
	ref := roadmap.WallClock(now())
	if *asOf != "" {
		var err error
		if ref, err = roadmap.ParseDate(*asOf); err != nil {
			return fmt.Errorf("-as-of: %w", err)
		}
	}

	rm, err := q.load(cfg)
	if err != nil {
		return err
	}
	delays := rm.Delays(ref)
	if *limit > 0 && *limit < len(delays) {
		delays = delays[:*limit]
	}

	if *q.asJSON {
		if delays == nil {
			delays = []roadmap.Delay{}
		}
		return writeJSON(stdout, delays)
	}
	if len(delays) == 0 {
		fmt.Fprintf(stdout, "No overdue stages as of %s.\n", ref.Format(roadmap.DateLayout))
		return nil
	}
	t := newTable("Days", "Station", "Portion", "Stage", "Planned End", "Status")
	for _, d := range delays {
		t.Row(strconv.Itoa(d.DaysOverdue), d.Station, d.Portion, d.Stage, d.PlannedEnd, string(d.CurrentStatus))
	}
	fmt.Fprintln(stdout, t.Render())
	return nil
}

// criticalPathCommand lists stages by duration, longest first.
func criticalPathCommand(cfg *config.Config, args []string) error {
	q := newQueryFlags("critical-path")
	limit := q.fs.Int("n", 10, "Show at most n stages (0 = all)")
	if err := q.fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return fmt.Errorf("-n must be non-negative")
	}

	rm, err := q.load(cfg)
	if err != nil {
		return err
	}
	stages := rm.LongestStages()
	if *limit > 0 && *limit < len(stages) {
		stages = stages[:*limit]
	}

	if *q.asJSON {
		if stages == nil {
			stages = []roadmap.StageSpan{}
		}
		return writeJSON(stdout, stages)
	}
	t := newTable("Days", "Station", "Portion", "Stage", "Start", "End", "Status")
	for _, s := range stages {
		t.Row(strconv.Itoa(s.DurationDays), s.Station, s.Portion, s.Stage, s.Start, s.End, string(s.Status))
	}
	fmt.Fprintln(stdout, t.Render())
	return nil
}

// referenceDate parses raw, defaulting to today in UTC.
func referenceDate(raw string) (time.Time, error) {
	if raw == "" {
		t := now()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return roadmap.ParseDate(raw)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(headers...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
