// Package schema embeds the roadmap JSON Schema and validates documents with it.
//
// The same schema file is what editors consume through a "$schema"
// reference for autocomplete, hover help and inline validation. Validation
// here compiles it with santhosh-tekuri/jsonschema and maps the resulting
// errors onto the violation vocabulary of package validate, so both
// engines report identical rule identifiers.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/roadmap-go/internal/validate"
)

// FileName is the conventional name of the schema next to a roadmap file.
const FileName = "roadmap.schema.json"

// resourceURL names the embedded schema inside the compiler.
const resourceURL = "mem://roadmap/" + FileName

//go:embed roadmap.schema.json
var schemaJSON []byte

// strictDefs are the record definitions closed by strict mode.
var strictDefs = []string{"portion", "stage", "milestone"}

// Bytes returns the embedded schema document.
func Bytes() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

// Document returns the schema, closing portion, stage and milestone records
// with additionalProperties=false when strict is set.
func Document(strict bool) ([]byte, error) {
	if !strict {
		return Bytes(), nil
	}
	var doc map[string]any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}
	defs, ok := doc["$defs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("embedded schema has no $defs")
	}
	for _, name := range strictDefs {
		def, ok := defs[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("embedded schema has no %q definition", name)
		}
		def["additionalProperties"] = false
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

// Options controls schema compilation and validation.
type Options struct {
	// Path overrides the embedded schema with a file on disk.
	Path string
	// Strict closes the record definitions of the embedded schema.
	Strict bool
	// LexicalDates disables the "format": "date" assertion so only the
	// pattern is enforced.
	LexicalDates bool
	// CheckDateOrder adds the end-before-start check, which JSON Schema
	// cannot express.
	CheckDateOrder bool
}

// Validator validates documents against a compiled schema.
type Validator struct {
	schema *jsonschema.Schema
	opts   Options
}

// Compile compiles the embedded schema, or opts.Path when set.
func Compile(opts Options) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = !opts.LexicalDates

	url := resourceURL
	if opts.Path != "" {
		absPath, err := filepath.Abs(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid schema path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("schema file: %w", err)
		}
		url = absPath
	} else {
		data, err := Document(opts.Strict)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema resource: %w", err)
		}
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled, opts: opts}, nil
}

// Validate checks doc against the compiled schema. Schema errors are
// flattened to their leaf causes and translated into violations.
func (v *Validator) Validate(doc any) *validate.Result {
	result := &validate.Result{}
	if err := v.schema.Validate(doc); err != nil {
		collect(result, doc, err)
		result.Violations = normalize(result.Violations)
	}
	if v.opts.CheckDateOrder {
		order := validate.Validate(doc, validate.Options{CheckDateOrder: true, LexicalDates: true})
		result.Violations = append(result.Violations, order.ByRule(validate.RuleEndBeforeStart)...)
	}
	return result
}

// Validate compiles the schema for opts and validates doc in one step.
func Validate(doc any, opts Options) (*validate.Result, error) {
	v, err := Compile(opts)
	if err != nil {
		return nil, err
	}
	return v.Validate(doc), nil
}
