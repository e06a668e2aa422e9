package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a roadmap file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses data into a generic value tree made of map[string]any,
// []any, string, float64, bool and nil. YAML input is normalised through
// JSON so both formats produce identical trees.
func Decode(data []byte, format Format) (any, error) {
	switch format {
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return normalize(doc)
	default:
		var doc any
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		if dec.More() {
			return nil, fmt.Errorf("parse json: unexpected data after top-level value")
		}
		return doc, nil
	}
}

// DecodeFile reads and decodes a roadmap file into a generic value tree.
func DecodeFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roadmap file: %w", err)
	}
	return Decode(data, FormatFromPath(path))
}

// FromTree converts a generic value tree into the typed model.
func FromTree(doc any) (*Roadmap, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal roadmap: %w", err)
	}
	var r Roadmap
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode roadmap: %w", err)
	}
	return &r, nil
}

// Load reads and parses a roadmap file from path.
func Load(path string) (*Roadmap, error) {
	doc, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return FromTree(doc)
}

// Save writes the roadmap to path as JSON with 2-space indentation.
func (r *Roadmap) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal roadmap: %w", err)
	}

	// Add trailing newline
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write roadmap file: %w", err)
	}

	return nil
}

// normalize converts a YAML value tree into JSON types.
func normalize(doc any) (any, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(convertYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	return out, nil
}

// convertYAML rewrites map[any]any nodes, which encoding/json rejects.
func convertYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = convertYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = convertYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertYAML(item)
		}
		return out
	default:
		return val
	}
}
