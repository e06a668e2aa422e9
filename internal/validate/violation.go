package validate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Rule identifies the kind of contract violation.
type Rule string

const (
	RuleMissingField   Rule = "missing-required-field"
	RuleWrongType      Rule = "wrong-type"
	RuleBadEnum        Rule = "bad-enum-value"
	RuleBadDateFormat  Rule = "bad-date-format"
	RuleInvalidDate    Rule = "invalid-date"
	RuleEmptyArray     Rule = "empty-required-array"
	RuleEmptyValue     Rule = "empty-value"
	RuleUnexpected     Rule = "unexpected-field"
	RuleEndBeforeStart Rule = "end-before-start"
	RuleMalformed      Rule = "malformed-document"
)

// Rules returns every rule identifier.
func Rules() []Rule {
	return []Rule{
		RuleMissingField,
		RuleWrongType,
		RuleBadEnum,
		RuleBadDateFormat,
		RuleInvalidDate,
		RuleEmptyArray,
		RuleEmptyValue,
		RuleUnexpected,
		RuleEndBeforeStart,
		RuleMalformed,
	}
}

// Category returns the error taxonomy name for the rule.
func (r Rule) Category() string {
	switch r {
	case RuleMissingField:
		return "MissingField"
	case RuleWrongType:
		return "TypeMismatch"
	case RuleBadEnum:
		return "InvalidEnumValue"
	case RuleBadDateFormat:
		return "InvalidDateFormat"
	case RuleInvalidDate:
		return "InvalidDate"
	case RuleEmptyArray:
		return "EmptyRequiredCollection"
	case RuleEmptyValue:
		return "EmptyValue"
	case RuleUnexpected:
		return "UnexpectedField"
	case RuleEndBeforeStart:
		return "DateOrder"
	case RuleMalformed:
		return "MalformedDocument"
	default:
		return "Unknown"
	}
}

// Segment is one step of a Path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path locates a value from the document root.
type Path []Segment

// Key returns a new path extended with an object key.
func (p Path) Key(key string) Path {
	return p.extend(Segment{Key: key})
}

// Index returns a new path extended with an array index.
func (p Path) Index(i int) Path {
	return p.extend(Segment{Index: i, IsIndex: true})
}

type segmentJSON struct {
	Key   *string `json:"key,omitempty"`
	Index *int    `json:"index,omitempty"`
}

// MarshalJSON encodes a segment as {"key": ...} or {"index": ...}.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.IsIndex {
		return json.Marshal(segmentJSON{Index: &s.Index})
	}
	return json.Marshal(segmentJSON{Key: &s.Key})
}

// UnmarshalJSON decodes a segment produced by MarshalJSON.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Index != nil:
		*s = Segment{Index: *raw.Index, IsIndex: true}
	case raw.Key != nil:
		*s = Segment{Key: *raw.Key}
	default:
		return fmt.Errorf("path segment needs a key or an index: %s", data)
	}
	return nil
}

func (p Path) extend(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// String renders the path for people, e.g.
// "Station D / P1 - Electrical Works / stages[0] / status".
func (p Path) String() string {
	var b strings.Builder
	for _, s := range p {
		if s.IsIndex {
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" / ")
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

// Pointer renders the path as an RFC 6901 JSON Pointer.
func (p Path) Pointer() string {
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		if s.IsIndex {
			b.WriteString(strconv.Itoa(s.Index))
			continue
		}
		key := strings.ReplaceAll(s.Key, "~", "~0")
		b.WriteString(strings.ReplaceAll(key, "/", "~1"))
	}
	return b.String()
}

// ParsePointer converts an RFC 6901 JSON Pointer (optionally prefixed with
// "#") into a Path. Segments made only of digits become indices, so a
// numeric object key comes back as an index. Violation JSON carries typed
// segments for exact round trips.
func ParsePointer(ptr string) Path {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	var p Path
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if idx, err := strconv.Atoi(part); err == nil && idx >= 0 && strconv.Itoa(idx) == part {
			p = append(p, Segment{Index: idx, IsIndex: true})
			continue
		}
		p = append(p, Segment{Key: part})
	}
	return p
}

// Violation is a single mismatch between a document and the roadmap contract.
type Violation struct {
	Path    Path
	Rule    Rule
	Message string
}

// Error implements error so violations can be wrapped and printed.
func (v Violation) Error() string {
	loc := v.Path.String()
	if loc == "" {
		loc = "<root>"
	}
	return fmt.Sprintf("%s: %s (%s)", loc, v.Message, v.Rule)
}

type violationJSON struct {
	Path     string `json:"path"`
	Pointer  string `json:"pointer"`
	Segments Path   `json:"segments"`
	Rule     Rule   `json:"rule"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// MarshalJSON encodes the violation with both display forms of the path
// and its typed segments.
func (v Violation) MarshalJSON() ([]byte, error) {
	segments := v.Path
	if segments == nil {
		segments = Path{}
	}
	return json.Marshal(violationJSON{
		Path:     v.Path.String(),
		Pointer:  v.Path.Pointer(),
		Segments: segments,
		Rule:     v.Rule,
		Category: v.Rule.Category(),
		Message:  v.Message,
	})
}

// UnmarshalJSON decodes a violation produced by MarshalJSON.
func (v *Violation) UnmarshalJSON(data []byte) error {
	var raw violationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case len(raw.Segments) > 0:
		v.Path = raw.Segments
	case raw.Segments == nil:
		// Older output without segments.
		v.Path = ParsePointer(raw.Pointer)
	default:
		v.Path = nil
	}
	v.Rule = raw.Rule
	v.Message = raw.Message
	return nil
}

// Result holds the outcome of validating one document.
type Result struct {
	Violations []Violation
}

// Valid reports whether the document was accepted.
func (r *Result) Valid() bool {
	return r == nil || len(r.Violations) == 0
}

// Add records a violation.
func (r *Result) Add(path Path, rule Rule, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		Path:    path,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	})
}

// ByRule returns the violations matching rule.
func (r *Result) ByRule(rule Rule) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Rule == rule {
			out = append(out, v)
		}
	}
	return out
}

// Counts returns the number of violations per rule.
func (r *Result) Counts() map[Rule]int {
	counts := make(map[Rule]int)
	for _, v := range r.Violations {
		counts[v.Rule]++
	}
	return counts
}

// Err returns nil for an accepted document and an *Error otherwise.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Violations: r.Violations}
}

// Error reports a rejected document.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	if len(e.Violations) == 1 {
		return "1 violation: " + e.Violations[0].Error()
	}
	return fmt.Sprintf("%d violations, first: %s", len(e.Violations), e.Violations[0].Error())
}
