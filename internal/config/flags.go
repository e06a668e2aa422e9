package config

import (
	"flag"
)

// parseFlags defines the global flags on fs and parses args. Only flags
// that were explicitly set override earlier layers. If sources is non-nil,
// it tracks the source of each value.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet(appName, flag.ContinueOnError)
	}

	// Flag binding struct for source tracking
	type flagBinding struct {
		field string
		apply func()
	}
	bindings := make(map[string]flagBinding)

	stringFlag := func(name, field string, target *string, usage string) {
		v := new(string)
		fs.StringVar(v, name, *target, usage)
		bindings[name] = flagBinding{field: field, apply: func() { *target = *v }}
	}
	boolFlag := func(name, field string, target *bool, usage string) {
		v := new(bool)
		fs.BoolVar(v, name, *target, usage)
		bindings[name] = flagBinding{field: field, apply: func() { *target = *v }}
	}

	// Paths
	stringFlag("file", "roadmap_file", &cfg.RoadmapFile, "Path to the roadmap data file (JSON or YAML)")
	stringFlag("schema", "schema_file", &cfg.SchemaFile, "Schema file overriding the embedded one (schema engine)")
	stringFlag("log-dir", "log_dir", &cfg.LogDir, "History log directory")

	// Validation
	stringFlag("engine", "engine", &cfg.Engine, "Validation engine (native, schema)")
	boolFlag("strict", "strict", &cfg.Strict, "Report unknown fields in portions, stages and milestones")
	boolFlag("lexical-dates", "lexical_dates", &cfg.LexicalDates, "Only check the YYYY-MM-DD shape of dates")
	boolFlag("check-date-order", "check_date_order", &cfg.CheckDateOrder, "Report stages that end before they start")
	boolFlag("history", "history", &cfg.History, "Record validation runs in the history log")

	// Logging
	stringFlag("log-level", "log_level", &cfg.LogLevel, "Log level (debug, info, warn, error)")
	stringFlag("log-format", "log_format", &cfg.LogFormat, "Log format (text, json, logfmt)")
	boolFlag("log-timestamps", "log_timestamps", &cfg.LogTimestamps, "Show timestamps in logs")
	boolFlag("log-caller", "log_caller", &cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Apply only the flags that were set
	fs.Visit(func(f *flag.Flag) {
		b, ok := bindings[f.Name]
		if !ok {
			return
		}
		b.apply()
		if sources != nil {
			sources[b.field] = SourceFlag
		}
	})

	return nil
}
