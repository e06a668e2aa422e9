package roadmap

import (
	"fmt"
	"sort"
	"time"
)

// StageInfo is the stage view used in status summaries.
type StageInfo struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// PortionSummary summarises the stages of one portion.
type PortionSummary struct {
	Portion  string      `json:"portion"`
	Stages   []StageInfo `json:"stages"`
	Progress float64     `json:"progress"`
}

// StationSummary summarises every portion of one station.
type StationSummary struct {
	Station         string           `json:"station"`
	Portions        []PortionSummary `json:"portions"`
	OverallProgress float64          `json:"overall_progress"`
}

// StationStatus returns the progress summary for a station. Progress is
// the percentage of completed stages.
func (r *Roadmap) StationStatus(name string) (*StationSummary, error) {
	station, ok := r.Stations[name]
	if !ok || name == SchemaKey {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, name)
	}

	summary := &StationSummary{Station: name}
	total, completed := 0, 0
	for _, label := range station.Labels() {
		portion := station[label]
		ps := PortionSummary{
			Portion: label,
			Stages:  make([]StageInfo, 0, len(portion.Stages)),
		}
		done := 0
		for _, stage := range portion.Stages {
			ps.Stages = append(ps.Stages, StageInfo{
				Name:   stage.Name,
				Status: stage.Status,
				Start:  stage.Start,
				End:    stage.End,
			})
			if stage.Status == StatusCompleted {
				done++
			}
		}
		ps.Progress = percent(done, len(portion.Stages))
		total += len(portion.Stages)
		completed += done
		summary.Portions = append(summary.Portions, ps)
	}
	summary.OverallProgress = percent(completed, total)
	return summary, nil
}

// MilestoneRef is a milestone together with its location.
type MilestoneRef struct {
	Station   string `json:"station"`
	Portion   string `json:"portion"`
	Stage     string `json:"stage"`
	Milestone string `json:"milestone"`
	Date      string `json:"date"`
	Status    Status `json:"status"`
}

// MilestonesInRange returns milestones dated within [from, to], ordered
// by date.
func (r *Roadmap) MilestonesInRange(from, to time.Time) []MilestoneRef {
	var out []MilestoneRef
	r.eachStage(func(ref PortionRef, stage *Stage) {
		for _, m := range stage.Milestones {
			date, err := ParseDate(m.Date)
			if err != nil {
				continue
			}
			if date.Before(from) || date.After(to) {
				continue
			}
			out = append(out, MilestoneRef{
				Station:   ref.Station,
				Portion:   ref.Portion,
				Stage:     stage.Name,
				Milestone: m.Name,
				Date:      m.Date,
				Status:    m.Status,
			})
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// Delay describes a stage past its planned end that is not completed.
type Delay struct {
	Station       string `json:"station"`
	Portion       string `json:"portion"`
	Stage         string `json:"stage"`
	PlannedEnd    string `json:"planned_end"`
	CurrentStatus Status `json:"current_status"`
	DaysOverdue   int    `json:"days_overdue"`
}

// Delays returns overdue stages as of the given date, most overdue first.
func (r *Roadmap) Delays(asOf time.Time) []Delay {
	var out []Delay
	r.eachStage(func(ref PortionRef, stage *Stage) {
		end, err := ParseDate(stage.End)
		if err != nil {
			return
		}
		if !end.Before(asOf) || stage.Status == StatusCompleted {
			return
		}
		out = append(out, Delay{
			Station:       ref.Station,
			Portion:       ref.Portion,
			Stage:         stage.Name,
			PlannedEnd:    stage.End,
			CurrentStatus: stage.Status,
			DaysOverdue:   daysBetween(end, asOf),
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysOverdue > out[j].DaysOverdue
	})
	return out
}

// StageSpan is a stage with its duration in days.
type StageSpan struct {
	Station      string `json:"station"`
	Portion      string `json:"portion"`
	Stage        string `json:"stage"`
	DurationDays int    `json:"duration_days"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Status       Status `json:"status"`
}

// LongestStages returns every stage ordered by duration, longest first.
func (r *Roadmap) LongestStages() []StageSpan {
	var out []StageSpan
	r.eachStage(func(ref PortionRef, stage *Stage) {
		days, err := stage.Duration()
		if err != nil {
			return
		}
		out = append(out, StageSpan{
			Station:      ref.Station,
			Portion:      ref.Portion,
			Stage:        stage.Name,
			DurationDays: days,
			Start:        stage.Start,
			End:          stage.End,
			Status:       stage.Status,
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationDays > out[j].DurationDays
	})
	return out
}

// DateRange returns the earliest stage start and latest stage end.
// ok is false when the roadmap has no stage with valid dates.
func (r *Roadmap) DateRange() (minDate, maxDate time.Time, ok bool) {
	r.eachStage(func(_ PortionRef, stage *Stage) {
		start, err := ParseDate(stage.Start)
		if err != nil {
			return
		}
		end, err := ParseDate(stage.End)
		if err != nil {
			return
		}
		if !ok || start.Before(minDate) {
			minDate = start
		}
		if !ok || end.After(maxDate) {
			maxDate = end
		}
		ok = true
	})
	return minDate, maxDate, ok
}

// StatusCounts counts stages by status.
func (r *Roadmap) StatusCounts() map[Status]int {
	counts := make(map[Status]int, len(Statuses()))
	for _, s := range Statuses() {
		counts[s] = 0
	}
	r.eachStage(func(_ PortionRef, stage *Stage) {
		counts[stage.Status]++
	})
	return counts
}

// eachStage visits stages in station, portion, stage order.
func (r *Roadmap) eachStage(fn func(ref PortionRef, stage *Stage)) {
	for _, ref := range r.Portions() {
		stages := r.Stations[ref.Station][ref.Portion].Stages
		for i := range stages {
			fn(ref, &stages[i])
		}
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
