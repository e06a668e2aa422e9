package schema

import (
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/roadmap-go/internal/validate"
)

// quotedName matches the single-quoted property names in "required" and
// "additionalProperties" messages.
var quotedName = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)

// keywordRules maps the failing JSON Schema keyword to a rule.
var keywordRules = map[string]validate.Rule{
	"required":             validate.RuleMissingField,
	"type":                 validate.RuleWrongType,
	"enum":                 validate.RuleBadEnum,
	"pattern":              validate.RuleBadDateFormat,
	"format":               validate.RuleInvalidDate,
	"minItems":             validate.RuleEmptyArray,
	"minLength":            validate.RuleEmptyValue,
	"additionalProperties": validate.RuleUnexpected,
}

// collect translates a schema error for doc into violations.
func collect(result *validate.Result, doc any, err error) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		result.Add(nil, validate.RuleMalformed, "%s", err.Error())
		return
	}
	collectCauses(result, doc, ve)
}

func collectCauses(result *validate.Result, doc any, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		appendLeaf(result, doc, err)
		return
	}
	for _, cause := range err.Causes {
		collectCauses(result, doc, cause)
	}
}

func appendLeaf(result *validate.Result, doc any, err *jsonschema.ValidationError) {
	path := instancePath(doc, err.InstanceLocation)
	keyword := lastToken(err.KeywordLocation)
	rule, ok := keywordRules[keyword]
	if !ok {
		rule = validate.RuleWrongType
	}

	switch {
	case len(path) == 0 && rule == validate.RuleWrongType:
		result.Add(nil, validate.RuleMalformed, "document must be an object of stations: %s", err.Message)
	case rule == validate.RuleMissingField && len(quotedNames(err.Message)) > 0:
		for _, name := range quotedNames(err.Message) {
			result.Add(path.Key(name), rule, "missing required field %q", name)
		}
	case rule == validate.RuleUnexpected && len(quotedNames(err.Message)) > 0:
		for _, name := range quotedNames(err.Message) {
			result.Add(path.Key(name), rule, "unexpected field %q", name)
		}
	default:
		result.Add(path, rule, "%s", err.Message)
	}
}

// normalize drops follow-on errors at a location already reported with a
// more fundamental rule and orders the rest by path.
func normalize(violations []validate.Violation) []validate.Violation {
	byPointer := make(map[string]map[validate.Rule]bool)
	for _, v := range violations {
		ptr := v.Path.Pointer()
		if byPointer[ptr] == nil {
			byPointer[ptr] = make(map[validate.Rule]bool)
		}
		byPointer[ptr][v.Rule] = true
	}

	out := make([]validate.Violation, 0, len(violations))
	seen := make(map[string]bool)
	for _, v := range violations {
		rules := byPointer[v.Path.Pointer()]
		switch v.Rule {
		case validate.RuleBadEnum, validate.RuleBadDateFormat, validate.RuleEmptyValue:
			if rules[validate.RuleWrongType] {
				continue
			}
		case validate.RuleInvalidDate:
			if rules[validate.RuleWrongType] || rules[validate.RuleBadDateFormat] {
				continue
			}
		}
		key := v.Path.Pointer() + "\x00" + string(v.Rule)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return comparePaths(out[i].Path, out[j].Path) < 0
	})
	return out
}

func comparePaths(a, b validate.Path) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		sa, sb := a[i], b[i]
		switch {
		case sa.IsIndex && sb.IsIndex:
			if sa.Index != sb.Index {
				return sa.Index - sb.Index
			}
		case sa.IsIndex != sb.IsIndex:
			if sa.IsIndex {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(sa.Key, sb.Key); c != 0 {
				return c
			}
		}
	}
	return len(a) - len(b)
}

// instancePath converts an instance location into a Path by walking doc
// alongside it. A token is an index only when it steps into an array, so
// numeric station and portion names stay keys. Tokens are percent-encoded
// in addition to the RFC 6901 escapes.
func instancePath(doc any, loc string) validate.Path {
	loc = strings.TrimPrefix(loc, "#")
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return nil
	}
	var path validate.Path
	node := doc
	for _, token := range strings.Split(loc, "/") {
		if unescaped, err := url.PathUnescape(token); err == nil {
			token = unescaped
		}
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")

		switch n := node.(type) {
		case []any:
			if idx, err := strconv.Atoi(token); err == nil && idx >= 0 && strconv.Itoa(idx) == token {
				path = path.Index(idx)
				node = nil
				if idx < len(n) {
					node = n[idx]
				}
				continue
			}
			path = path.Key(token)
			node = nil
		case map[string]any:
			path = path.Key(token)
			node = n[token]
		default:
			path = path.Key(token)
			node = nil
		}
	}
	return path
}

func lastToken(loc string) string {
	if i := strings.LastIndexByte(loc, '/'); i >= 0 {
		return loc[i+1:]
	}
	return loc
}

func quotedNames(msg string) []string {
	matches := quotedName.FindAllStringSubmatch(msg, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.ReplaceAll(m[1], `\'`, `'`))
	}
	return names
}
