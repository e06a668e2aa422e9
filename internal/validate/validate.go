// Package validate checks roadmap documents against the roadmap data contract.
package validate

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nibzard/roadmap-go/internal/roadmap"
)

// datePattern is the lexical shape required for every date field.
var datePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

var (
	portionFields   = []string{"stages"}
	stageFields     = []string{"name", "start", "end", "status", "milestones"}
	milestoneFields = []string{"name", "date", "status"}
)

// Options controls validation behavior.
type Options struct {
	// Strict reports unknown keys in portion, stage and milestone records.
	Strict bool
	// LexicalDates only checks the YYYY-MM-DD shape of dates, accepting
	// calendar-invalid values such as 2024-13-45.
	LexicalDates bool
	// CheckDateOrder reports stages whose end date precedes their start.
	CheckDateOrder bool
}

// Validator walks a decoded document and collects violations.
type Validator struct {
	opts Options
}

// New returns a Validator using opts.
func New(opts Options) *Validator {
	return &Validator{opts: opts}
}

// Validate validates doc with the given options.
func Validate(doc any, opts Options) *Result {
	return New(opts).Validate(doc)
}

// Validate checks doc, a value tree as produced by encoding/json, and
// returns every violation found. Only a root that is not an object stops
// the walk early.
func (v *Validator) Validate(doc any) *Result {
	result := &Result{}
	root, ok := doc.(map[string]any)
	if !ok {
		result.Add(nil, RuleMalformed, "document must be an object of stations, got %s", typeName(doc))
		return result
	}

	w := &walker{opts: v.opts, result: result}
	for _, name := range sortedKeys(root) {
		if name == roadmap.SchemaKey {
			continue
		}
		w.station(Path{}.Key(name), root[name])
	}
	return result
}

type walker struct {
	opts   Options
	result *Result
}

func (w *walker) station(path Path, value any) {
	portions, ok := value.(map[string]any)
	if !ok {
		w.result.Add(path, RuleWrongType, "station must be an object of portions, got %s", typeName(value))
		return
	}
	for _, label := range sortedKeys(portions) {
		w.portion(path.Key(label), portions[label])
	}
}

func (w *walker) portion(path Path, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		w.result.Add(path, RuleWrongType, "portion must be an object, got %s", typeName(value))
		return
	}
	w.unexpected(path, obj, portionFields)

	raw, ok := obj["stages"]
	if !ok {
		w.result.Add(path.Key("stages"), RuleMissingField, "missing required field %q", "stages")
		return
	}
	stages, ok := raw.([]any)
	if !ok {
		w.result.Add(path.Key("stages"), RuleWrongType, "stages must be an array, got %s", typeName(raw))
		return
	}
	if len(stages) == 0 {
		w.result.Add(path.Key("stages"), RuleEmptyArray, "stages must contain at least one stage")
		return
	}
	for i, stage := range stages {
		w.stage(path.Key("stages").Index(i), stage)
	}
}

func (w *walker) stage(path Path, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		w.result.Add(path, RuleWrongType, "stage must be an object, got %s", typeName(value))
		return
	}

	for _, field := range stageFields {
		if _, ok := obj[field]; !ok {
			w.result.Add(path.Key(field), RuleMissingField, "missing required field %q", field)
		}
	}

	if raw, ok := obj["name"]; ok {
		if name, ok := w.text(path.Key("name"), raw); ok && name == "" {
			w.result.Add(path.Key("name"), RuleEmptyValue, "name must not be empty")
		}
	}

	var start, end time.Time
	var haveStart, haveEnd bool
	if raw, ok := obj["start"]; ok {
		start, haveStart = w.date(path.Key("start"), raw)
	}
	if raw, ok := obj["end"]; ok {
		end, haveEnd = w.date(path.Key("end"), raw)
	}
	if w.opts.CheckDateOrder && haveStart && haveEnd && end.Before(start) {
		w.result.Add(path.Key("end"), RuleEndBeforeStart, "end %s is before start %s",
			end.Format(roadmap.DateLayout), start.Format(roadmap.DateLayout))
	}

	if raw, ok := obj["status"]; ok {
		w.status(path.Key("status"), raw)
	}

	if raw, ok := obj["milestones"]; ok {
		milestones, ok := raw.([]any)
		if !ok {
			w.result.Add(path.Key("milestones"), RuleWrongType, "milestones must be an array, got %s", typeName(raw))
		} else {
			for i, m := range milestones {
				w.milestone(path.Key("milestones").Index(i), m)
			}
		}
	}

	w.unexpected(path, obj, stageFields)
}

func (w *walker) milestone(path Path, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		w.result.Add(path, RuleWrongType, "milestone must be an object, got %s", typeName(value))
		return
	}

	for _, field := range milestoneFields {
		if _, ok := obj[field]; !ok {
			w.result.Add(path.Key(field), RuleMissingField, "missing required field %q", field)
		}
	}
	if raw, ok := obj["name"]; ok {
		w.text(path.Key("name"), raw)
	}
	if raw, ok := obj["date"]; ok {
		w.date(path.Key("date"), raw)
	}
	if raw, ok := obj["status"]; ok {
		w.status(path.Key("status"), raw)
	}

	w.unexpected(path, obj, milestoneFields)
}

func (w *walker) text(path Path, value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		w.result.Add(path, RuleWrongType, "must be a string, got %s", typeName(value))
		return "", false
	}
	return s, true
}

// date checks shape and, unless LexicalDates is set, calendar validity.
// The parsed time is returned when the value is a real calendar date.
func (w *walker) date(path Path, value any) (time.Time, bool) {
	s, ok := w.text(path, value)
	if !ok {
		return time.Time{}, false
	}
	if !datePattern.MatchString(s) {
		w.result.Add(path, RuleBadDateFormat, "date %q must use the YYYY-MM-DD format", s)
		return time.Time{}, false
	}
	t, err := time.Parse(roadmap.DateLayout, s)
	if err != nil {
		if !w.opts.LexicalDates {
			w.result.Add(path, RuleInvalidDate, "date %q is not a valid calendar date", s)
		}
		return time.Time{}, false
	}
	return t, true
}

func (w *walker) status(path Path, value any) {
	s, ok := w.text(path, value)
	if !ok {
		return
	}
	if !roadmap.Status(s).Valid() {
		w.result.Add(path, RuleBadEnum, "status %q must be one of: %s", s, statusList())
	}
}

func (w *walker) unexpected(path Path, obj map[string]any, allowed []string) {
	if !w.opts.Strict {
		return
	}
	for _, key := range sortedKeys(obj) {
		if !contains(allowed, key) {
			w.result.Add(path.Key(key), RuleUnexpected, "unexpected field %q", key)
		}
	}
}

func statusList() string {
	statuses := roadmap.Statuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	default:
		return "unknown"
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
