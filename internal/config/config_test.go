// Package config tests configuration loading.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// isolate points HOME, XDG_CONFIG_HOME and the working directory at fresh
// temp dirs and clears ROADMAP_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, name := range []string{
		"FILE", "SCHEMA", "LOG_DIR", "ENGINE", "STRICT", "LEXICAL_DATES",
		"CHECK_DATE_ORDER", "HISTORY", "LOG_LEVEL", "LOG_FORMAT",
		"LOG_TIMESTAMPS", "LOG_CALLER", "SERVE_ADDR", "WATCH_DEBOUNCE",
		"CHART_TITLE", "CHART_OUTPUT",
	} {
		t.Setenv(envPrefix+name, "")
	}
	project := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.RoadmapFile != DefaultRoadmapFile {
		t.Errorf("RoadmapFile: got %q, want %q", cfg.RoadmapFile, DefaultRoadmapFile)
	}
	if cfg.Engine != EngineNative {
		t.Errorf("Engine: got %q, want native", cfg.Engine)
	}
	if !cfg.History {
		t.Errorf("History: got false, want true")
	}
	if cfg.Strict || cfg.LexicalDates || cfg.CheckDateOrder {
		t.Errorf("validation toggles should default to false: %+v", cfg)
	}
	if cfg.ServeAddr() != DefaultServeAddr {
		t.Errorf("ServeAddr: got %q", cfg.ServeAddr())
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wd, _ := os.Getwd()
	if cfg.ProjectRoot != wd {
		t.Errorf("ProjectRoot: got %q, want %q", cfg.ProjectRoot, wd)
	}
	if want := filepath.Join(wd, "data", "data.json"); cfg.RoadmapFile != want {
		t.Errorf("RoadmapFile: got %q, want %q", cfg.RoadmapFile, want)
	}
	if cfg.SchemaFile != "" {
		t.Errorf("SchemaFile: got %q, want empty", cfg.SchemaFile)
	}
	if cfg.WatchDebounce() != 200*time.Millisecond {
		t.Errorf("WatchDebounce: got %v", cfg.WatchDebounce())
	}
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ROADMAP_FILE", "custom.yaml")
	t.Setenv("ROADMAP_ENGINE", "schema")
	t.Setenv("ROADMAP_STRICT", "yes")
	t.Setenv("ROADMAP_HISTORY", "0")
	t.Setenv("ROADMAP_SERVE_ADDR", ":9999")

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadFromEnv(cfg, sources); err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}

	if cfg.RoadmapFile != "custom.yaml" {
		t.Errorf("RoadmapFile: got %q, want custom.yaml", cfg.RoadmapFile)
	}
	if cfg.Engine != EngineSchema {
		t.Errorf("Engine: got %q, want schema", cfg.Engine)
	}
	if !cfg.Strict {
		t.Error("Strict: got false, want true")
	}
	if cfg.History {
		t.Error("History: got true, want false")
	}
	if cfg.Serve.Addr != ":9999" {
		t.Errorf("Serve.Addr: got %q", cfg.Serve.Addr)
	}
	if sources["engine"] != SourceEnv || sources["serve.addr"] != SourceEnv {
		t.Errorf("sources not tracked: %v", sources)
	}
}

func TestLoadFromEnvBadDebounce(t *testing.T) {
	isolate(t)
	t.Setenv("ROADMAP_WATCH_DEBOUNCE", "soon")

	cfg := &Config{}
	setDefaults(cfg)
	if err := loadFromEnv(cfg, nil); err == nil {
		t.Fatal("expected error for invalid debounce")
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "roadmap.toml")

	content := []byte(`roadmap_file = "plans/roadmap.yaml"
strict = true

[watch]
debounce = "1s"

[chart]
title = "Line 4"
`)
	if err := os.WriteFile(configFile, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadConfigFile(cfg, configFile, sources, SourceProjFile); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.RoadmapFile != "plans/roadmap.yaml" {
		t.Errorf("RoadmapFile: got %q", cfg.RoadmapFile)
	}
	if !cfg.Strict {
		t.Error("Strict: got false, want true")
	}
	if cfg.WatchDebounce() != time.Second {
		t.Errorf("WatchDebounce: got %v", cfg.WatchDebounce())
	}
	if cfg.ChartTitle() != "Line 4" {
		t.Errorf("ChartTitle: got %q", cfg.ChartTitle())
	}
	if cfg.ChartOutput() != DefaultChartOutput {
		t.Errorf("ChartOutput should keep its default, got %q", cfg.ChartOutput())
	}

	for _, field := range []string{"roadmap_file", "strict", "watch.debounce", "chart.title"} {
		if sources[field] != SourceProjFile {
			t.Errorf("source of %s: got %q", field, sources[field])
		}
	}
	if _, ok := sources["chart.output"]; ok {
		t.Error("chart.output was not in the file")
	}
}

func TestLoadConfigFileUnknownKey(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "roadmap.toml")
	if err := os.WriteFile(configFile, []byte("max_iterations = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{}
	if err := loadConfigFile(cfg, configFile, nil, SourceUserFile); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)

	userDir := filepath.Join(home, ".roadmap")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "roadmap.toml"), []byte("engine = \"schema\"\nlog_level = \"debug\"\nstrict = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("roadmap.toml", []byte("log_level = \"warn\"\nlexical_dates = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROADMAP_LEXICAL_DATES", "false")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cws, err := LoadWithSources(fs, []string{"-strict=false", "status"})
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config

	if cfg.Engine != EngineSchema {
		t.Errorf("Engine: got %q, want schema (user file)", cfg.Engine)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want warn (project file)", cfg.LogLevel)
	}
	if cfg.LexicalDates {
		t.Error("LexicalDates: env should override project file")
	}
	if cfg.Strict {
		t.Error("Strict: flag should override user file")
	}

	want := map[string]ConfigSource{
		"engine":        SourceUserFile,
		"log_level":     SourceProjFile,
		"lexical_dates": SourceEnv,
		"strict":        SourceFlag,
		"roadmap_file":  SourceDefault,
	}
	for field, source := range want {
		if cws.Sources[field] != source {
			t.Errorf("source of %s: got %q, want %q", field, cws.Sources[field], source)
		}
	}
	if got := cws.GetConfigFile(); got != "roadmap.toml" {
		t.Errorf("GetConfigFile: got %q, want roadmap.toml", got)
	}
	if args := fs.Args(); len(args) != 1 || args[0] != "status" {
		t.Errorf("remaining args: %v", args)
	}
}

func TestFinalizeRejectsUnknownEngine(t *testing.T) {
	cfg := &Config{Engine: "magic", ProjectRoot: t.TempDir()}
	if err := finalizeConfig(cfg); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	args := []string{"-file", "other.json", "-engine", "schema", "-check-date-order", "-log-format", "json"}
	if err := parseFlags(cfg, fs, args, nil); err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.RoadmapFile != "other.json" {
		t.Errorf("RoadmapFile: got %q", cfg.RoadmapFile)
	}
	if cfg.Engine != EngineSchema {
		t.Errorf("Engine: got %q", cfg.Engine)
	}
	if !cfg.CheckDateOrder {
		t.Error("CheckDateOrder: got false")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: got %q", cfg.LogFormat)
	}
	if !cfg.History {
		t.Error("unset flags must not reset earlier values")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}
	if runtime.GOOS == "windows" {
		t.Setenv("ROADMAP_TEST_HOME", home)
		tests = append(tests, struct {
			input string
			want  string
		}{`%ROADMAP_TEST_HOME%\logs`, filepath.Join(home, "logs")})
	} else {
		tests = append(tests, struct {
			input string
			want  string
		}{`~\test`, `~\test`})
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.want {
				t.Errorf("expandPath(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExampleConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.toml")
	if err := os.WriteFile(path, []byte(ExampleConfig()), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{}
	if err := loadConfigFile(cfg, path, nil, SourceProjFile); err != nil {
		t.Fatalf("example config does not decode: %v", err)
	}
	if cfg.RoadmapFile != DefaultRoadmapFile {
		t.Errorf("RoadmapFile: got %q", cfg.RoadmapFile)
	}
}
