package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, user file first.
	Files []string
}

// Validation engines.
const (
	EngineNative = "native"
	EngineSchema = "schema"
)

// Default values.
const (
	DefaultRoadmapFile   = "data/data.json"
	DefaultLogDir        = "~/.roadmap"
	DefaultEngine        = EngineNative
	DefaultServeAddr     = "127.0.0.1:8080"
	DefaultWatchDebounce = "200ms"
	DefaultChartTitle    = "Station Integration Roadmap"
	DefaultChartOutput   = "roadmap.html"
)

// Config holds the full configuration for roadmap.
type Config struct {
	// Paths
	RoadmapFile string `toml:"roadmap_file"`
	// SchemaFile overrides the embedded schema for the schema engine.
	SchemaFile string `toml:"schema_file"`
	LogDir     string `toml:"log_dir"`

	// Validation
	Engine         string `toml:"engine"`
	Strict         bool   `toml:"strict"`
	LexicalDates   bool   `toml:"lexical_dates"`
	CheckDateOrder bool   `toml:"check_date_order"`

	// History writes a JSONL record of every validation run under LogDir.
	History bool `toml:"history"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	Serve ServeConfig `toml:"serve"`
	Watch WatchConfig `toml:"watch"`
	Chart ChartConfig `toml:"chart"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is a Go duration string, e.g. "200ms".
	Debounce string `toml:"debounce"`
}

// ChartConfig configures Gantt chart rendering.
type ChartConfig struct {
	Title  string `toml:"title"`
	Output string `toml:"output"`
}
