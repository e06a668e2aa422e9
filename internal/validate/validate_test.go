package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
  "$schema": "./roadmap.schema.json",
  "Station D": {
    "P1 - Electrical Works": {
      "stages": [
        {
          "name": "Design",
          "start": "2024-01-01",
          "end": "2024-03-31",
          "status": "completed",
          "milestones": [
            {"name": "Design Review", "date": "2024-02-15", "status": "completed"}
          ]
        }
      ]
    }
  }
}`

func decode(t *testing.T, s string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	return doc
}

// mutate decodes validDoc and applies fn to the first stage.
func mutate(t *testing.T, fn func(stage map[string]any)) any {
	t.Helper()
	doc := decode(t, validDoc)
	root := doc.(map[string]any)
	portion := root["Station D"].(map[string]any)["P1 - Electrical Works"].(map[string]any)
	fn(portion["stages"].([]any)[0].(map[string]any))
	return doc
}

func TestValidateAcceptsValidDocument(t *testing.T) {
	result := Validate(decode(t, validDoc), Options{})
	assert.True(t, result.Valid())
	assert.Empty(t, result.Violations)
	assert.NoError(t, result.Err())
}

func TestValidateBadStatus(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["status"] = "compleeted"
	})

	result := Validate(doc, Options{})
	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, RuleBadEnum, v.Rule)
	assert.Equal(t, "Station D / P1 - Electrical Works / stages[0] / status", v.Path.String())
	assert.Equal(t, "InvalidEnumValue", v.Rule.Category())
}

func TestValidateMilestoneStatus(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["milestones"].([]any)[0].(map[string]any)["status"] = "done"
	})

	result := Validate(doc, Options{})
	require.Len(t, result.Violations, 1)
	assert.Equal(t, RuleBadEnum, result.Violations[0].Rule)
	assert.Equal(t, "Station D / P1 - Electrical Works / stages[0] / milestones[0] / status",
		result.Violations[0].Path.String())
}

func TestValidateCalendarInvalidDate(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["start"] = "2024-13-45"
	})

	result := Validate(doc, Options{})
	require.Len(t, result.Violations, 1)
	assert.Equal(t, RuleInvalidDate, result.Violations[0].Rule)
	assert.Equal(t, "Station D / P1 - Electrical Works / stages[0] / start", result.Violations[0].Path.String())

	lexical := Validate(doc, Options{LexicalDates: true})
	assert.True(t, lexical.Valid(), "lexical mode only checks the shape")
}

func TestValidateDateFormat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		rule  Rule
	}{
		{"slashes", "2024/01/01", RuleBadDateFormat},
		{"short month", "2024-1-01", RuleBadDateFormat},
		{"timestamp", "2024-01-01T00:00:00Z", RuleBadDateFormat},
		{"empty", "", RuleBadDateFormat},
		{"leap day in common year", "2023-02-29", RuleInvalidDate},
		{"number", float64(20240101), RuleWrongType},
		{"null", nil, RuleWrongType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mutate(t, func(stage map[string]any) {
				stage["end"] = tt.value
			})
			result := Validate(doc, Options{})
			require.Len(t, result.Violations, 1)
			assert.Equal(t, tt.rule, result.Violations[0].Rule)
			assert.Equal(t, "/Station D/P1 - Electrical Works/stages/0/end", result.Violations[0].Path.Pointer())
		})
	}
}

func TestValidateEmptyStages(t *testing.T) {
	doc := decode(t, `{"Station A": {"P2 - Civil": {"stages": []}}}`)

	result := Validate(doc, Options{})
	require.Len(t, result.Violations, 1)
	assert.Equal(t, RuleEmptyArray, result.Violations[0].Rule)
	assert.Equal(t, "Station A / P2 - Civil / stages", result.Violations[0].Path.String())
}

func TestValidateMissingStageFields(t *testing.T) {
	doc := decode(t, `{"Station A": {"P1": {"stages": [{}]}}}`)

	result := Validate(doc, Options{})
	missing := result.ByRule(RuleMissingField)
	require.Len(t, missing, 5)
	assert.Len(t, result.Violations, 5)

	var fields []string
	for _, v := range missing {
		fields = append(fields, v.Path[len(v.Path)-1].Key)
	}
	assert.Equal(t, []string{"name", "start", "end", "status", "milestones"}, fields)
}

func TestValidateMissingMilestoneFields(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["milestones"] = []any{map[string]any{"name": "Handover"}}
	})

	result := Validate(doc, Options{})
	assert.Equal(t, map[Rule]int{RuleMissingField: 2}, result.Counts())
}

func TestValidateEmptyMilestonesAllowed(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["milestones"] = []any{}
	})
	assert.True(t, Validate(doc, Options{}).Valid())
}

func TestValidateAccumulatesAcrossStations(t *testing.T) {
	doc := decode(t, `{
  "Station A": {"P1": {"stages": [{"name": "", "start": "2024-01-01", "end": "2024-02-01", "status": "nope", "milestones": []}]}},
  "Station B": {"P1": {}},
  "Station C": "not a station",
  "Station D": {"P1": "not a portion", "P2": {"stages": "nope"}}
}`)

	result := Validate(doc, Options{})
	assert.Equal(t, map[Rule]int{
		RuleEmptyValue:   1,
		RuleBadEnum:      1,
		RuleMissingField: 1,
		RuleWrongType:    3,
	}, result.Counts())

	// Stations are visited in sorted order.
	assert.Equal(t, "Station A", result.Violations[0].Path[0].Key)
	assert.Equal(t, "Station D", result.Violations[len(result.Violations)-1].Path[0].Key)
}

func TestValidateMalformedDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  any
	}{
		{"array", []any{}},
		{"string", "roadmap"},
		{"null", nil},
		{"number", float64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.doc, Options{})
			require.Len(t, result.Violations, 1)
			assert.Equal(t, RuleMalformed, result.Violations[0].Rule)
			assert.Empty(t, result.Violations[0].Path)
		})
	}
}

func TestValidateSchemaKeyIgnored(t *testing.T) {
	doc := decode(t, `{"$schema": 42}`)
	assert.True(t, Validate(doc, Options{Strict: true}).Valid())
}

func TestValidateStrict(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["owner"] = "ops"
		stage["milestones"].([]any)[0].(map[string]any)["notes"] = "x"
	})

	assert.True(t, Validate(doc, Options{}).Valid())

	result := Validate(doc, Options{Strict: true})
	unexpected := result.ByRule(RuleUnexpected)
	require.Len(t, unexpected, 2)
	assert.Equal(t, "Station D / P1 - Electrical Works / stages[0] / milestones[0] / notes", unexpected[0].Path.String())
	assert.Equal(t, "Station D / P1 - Electrical Works / stages[0] / owner", unexpected[1].Path.String())
}

func TestValidateDateOrder(t *testing.T) {
	doc := mutate(t, func(stage map[string]any) {
		stage["start"] = "2024-05-01"
		stage["end"] = "2024-04-01"
	})

	assert.True(t, Validate(doc, Options{}).Valid())

	result := Validate(doc, Options{CheckDateOrder: true})
	require.Len(t, result.Violations, 1)
	assert.Equal(t, RuleEndBeforeStart, result.Violations[0].Rule)
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	doc := decode(t, `{"Station A": {"P1": {"stages": [{"status": "bad"}]}}}`)
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	Validate(doc, Options{Strict: true, CheckDateOrder: true})

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestPathRoundTrip(t *testing.T) {
	p := Path{}.Key("Station/A").Key("P~1").Key("stages").Index(3).Key("status")
	assert.Equal(t, "/Station~1A/P~01/stages/3/status", p.Pointer())
	assert.Equal(t, p, ParsePointer(p.Pointer()))
	assert.Equal(t, p, ParsePointer("#"+p.Pointer()))
	assert.Nil(t, ParsePointer(""))

	numeric := Path{}.Key("2024").Key("7").Key("stages").Index(0)
	data, err := json.Marshal(numeric)
	require.NoError(t, err)
	var decoded Path
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, numeric, decoded)
	assert.NotEqual(t, numeric, ParsePointer(numeric.Pointer()))
}

func TestPathKeyDoesNotAlias(t *testing.T) {
	base := Path{}.Key("a")
	left := base.Key("left")
	right := base.Key("right")
	assert.Equal(t, "a / left", left.String())
	assert.Equal(t, "a / right", right.String())
}

func TestViolationJSON(t *testing.T) {
	v := Violation{
		Path:    Path{}.Key("Station D").Key("P1").Key("stages").Index(0).Key("status"),
		Rule:    RuleBadEnum,
		Message: "bad",
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
  "path": "Station D / P1 / stages[0] / status",
  "pointer": "/Station D/P1/stages/0/status",
  "segments": [{"key": "Station D"}, {"key": "P1"}, {"key": "stages"}, {"index": 0}, {"key": "status"}],
  "rule": "bad-enum-value",
  "category": "InvalidEnumValue",
  "message": "bad"
}`, string(data))

	var decoded Violation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, v, decoded)
}

func TestViolationJSONNumericKeys(t *testing.T) {
	result := Validate(decode(t, `{"2024": {"7": {"stages": []}}}`), Options{})
	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "2024 / 7 / stages", v.Path.String())

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded Violation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, v, decoded)
	assert.Equal(t, "2024 / 7 / stages", decoded.Path.String())
}

func TestViolationJSONRoot(t *testing.T) {
	v := Violation{Rule: RuleMalformed, Message: "not an object"}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"segments":[]`)

	var decoded Violation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, v, decoded)
}

func TestViolationJSONWithoutSegments(t *testing.T) {
	var decoded Violation
	require.NoError(t, json.Unmarshal([]byte(`{"pointer": "/Station A/P1/stages/0", "rule": "wrong-type", "message": "m"}`), &decoded))
	assert.Equal(t, "Station A / P1 / stages[0]", decoded.Path.String())

	var seg Segment
	assert.Error(t, json.Unmarshal([]byte(`{}`), &seg))
}

func TestResultErr(t *testing.T) {
	result := &Result{}
	result.Add(nil, RuleMalformed, "document must be an object")
	err := result.Err()
	require.Error(t, err)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 1)
	assert.Contains(t, err.Error(), "<root>")
}
