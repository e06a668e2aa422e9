package roadmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar date format used by every date field.
const DateLayout = "2006-01-02"

// SchemaKey is the optional root key pointing editors at the JSON Schema.
const SchemaKey = "$schema"

// ErrStationNotFound is returned by lookups for an unknown station.
var ErrStationNotFound = errors.New("station not found")

// Status represents the state of a stage or milestone.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in_progress"
	StatusPlanned    Status = "planned"
	StatusDelayed    Status = "delayed"
)

// Statuses returns every valid status in display order.
func Statuses() []Status {
	return []Status{StatusCompleted, StatusInProgress, StatusPlanned, StatusDelayed}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusInProgress, StatusPlanned, StatusDelayed:
		return true
	}
	return false
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// WallClock returns the local date and time of t as a UTC value, so it
// compares with ParseDate results as a local timestamp would. A stage
// ending today is already past its end at any time after midnight.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Milestone is a single dated checkpoint within a stage.
type Milestone struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// Stage is a time-bounded phase of work within a portion.
type Stage struct {
	Name       string      `json:"name"`
	Start      string      `json:"start"`
	End        string      `json:"end"`
	Status     Status      `json:"status"`
	Milestones []Milestone `json:"milestones"`
}

// Duration returns the number of days between start and end.
func (s *Stage) Duration() (int, error) {
	start, err := ParseDate(s.Start)
	if err != nil {
		return 0, err
	}
	end, err := ParseDate(s.End)
	if err != nil {
		return 0, err
	}
	return daysBetween(start, end), nil
}

// Portion is a labelled body of work within a station.
type Portion struct {
	Stages []Stage `json:"stages"`
}

// Station maps portion labels to portions.
type Station map[string]Portion

// Labels returns the portion labels in sorted order.
func (s Station) Labels() []string {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Roadmap is the typed form of a roadmap file.
type Roadmap struct {
	// Schema holds the optional "$schema" reference.
	Schema   string
	Stations map[string]Station
}

// UnmarshalJSON decodes the station map, lifting "$schema" out of it.
func (r *Roadmap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Schema = ""
	r.Stations = make(map[string]Station, len(raw))
	for key, value := range raw {
		if key == SchemaKey {
			// Only a string reference is kept; anything else is ignored.
			var ref string
			if json.Unmarshal(value, &ref) == nil {
				r.Schema = ref
			}
			continue
		}
		var station Station
		if err := json.Unmarshal(value, &station); err != nil {
			return fmt.Errorf("station %q: %w", key, err)
		}
		r.Stations[key] = station
	}
	return nil
}

// MarshalJSON encodes the roadmap as a flat station map.
func (r Roadmap) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Stations)+1)
	if r.Schema != "" {
		out[SchemaKey] = r.Schema
	}
	for name, station := range r.Stations {
		out[name] = station
	}
	return json.Marshal(out)
}

// StationNames returns the station names in sorted order.
func (r *Roadmap) StationNames() []string {
	names := make([]string, 0, len(r.Stations))
	for name := range r.Stations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PortionRef identifies a portion within a station.
type PortionRef struct {
	Station string `json:"station"`
	Portion string `json:"portion"`
}

// Portions returns every (station, portion) pair in sorted order.
func (r *Roadmap) Portions() []PortionRef {
	var refs []PortionRef
	for _, name := range r.StationNames() {
		for _, label := range r.Stations[name].Labels() {
			refs = append(refs, PortionRef{Station: name, Portion: label})
		}
	}
	return refs
}

// StageCount returns the total number of stages in the roadmap.
func (r *Roadmap) StageCount() int {
	n := 0
	for _, station := range r.Stations {
		for _, portion := range station {
			n += len(portion.Stages)
		}
	}
	return n
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
