package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# Roadmap configuration file
# Values can be overridden by ROADMAP_* environment variables or CLI flags

# Roadmap data file (relative to project root; .json, .yaml or .yml)
roadmap_file = "data/data.json"

# Schema file for the schema engine (empty uses the embedded schema)
# schema_file = "roadmap.schema.json"

# Validation engine: native or schema
engine = "native"

# Report unknown fields in portions, stages and milestones
strict = false

# Only check the YYYY-MM-DD shape of dates (accepts 2024-13-45)
lexical_dates = false

# Report stages whose end date is before their start date
check_date_order = false

# Record every validation run as JSONL under log_dir
history = true

# History log directory (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.roadmap"

# Console logging
log_level = "info"
log_format = "text"
log_timestamps = false
log_caller = false

[serve]
addr = "127.0.0.1:8080"

[watch]
debounce = "200ms"

[chart]
title = "Station Integration Roadmap"
output = "roadmap.html"
`
}
