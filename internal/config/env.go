package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// envPrefix prefixes every environment variable read by roadmap.
const envPrefix = "ROADMAP_"

// loadFromEnv overrides config from ROADMAP_* environment variables.
// If sources is non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}
	str := func(name, field string, target *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*target = v
			set(field)
		}
	}
	boolean := func(name, field string, target *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*target = boolFromString(v)
			set(field)
		}
	}

	str("FILE", "roadmap_file", &cfg.RoadmapFile)
	str("SCHEMA", "schema_file", &cfg.SchemaFile)
	str("LOG_DIR", "log_dir", &cfg.LogDir)
	str("ENGINE", "engine", &cfg.Engine)
	boolean("STRICT", "strict", &cfg.Strict)
	boolean("LEXICAL_DATES", "lexical_dates", &cfg.LexicalDates)
	boolean("CHECK_DATE_ORDER", "check_date_order", &cfg.CheckDateOrder)
	boolean("HISTORY", "history", &cfg.History)

	// Logging configuration
	str("LOG_LEVEL", "log_level", &cfg.LogLevel)
	str("LOG_FORMAT", "log_format", &cfg.LogFormat)
	boolean("LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	boolean("LOG_CALLER", "log_caller", &cfg.LogCaller)

	str("SERVE_ADDR", "serve.addr", &cfg.Serve.Addr)
	str("CHART_TITLE", "chart.title", &cfg.Chart.Title)
	str("CHART_OUTPUT", "chart.output", &cfg.Chart.Output)

	if v := os.Getenv(envPrefix + "WATCH_DEBOUNCE"); v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%sWATCH_DEBOUNCE: %w", envPrefix, err)
		}
		cfg.Watch.Debounce = v
		set("watch.debounce")
	}

	return nil
}

// boolFromString parses a boolean from a string.
func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
