// Package logging provides tests for the history log and console logger.
package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// TestNewRunLogger tests creating a new run logger.
func TestNewRunLogger(t *testing.T) {
	t.Run("successful creation with valid paths", func(t *testing.T) {
		logger, err := NewRunLogger(t.TempDir(), t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer logger.Close()

		if logger.Dir == "" || logger.RunID == "" || logger.LogPath == "" {
			t.Errorf("expected Dir, RunID and LogPath to be set: %+v", logger)
		}
		if _, err := os.Stat(logger.LogPath); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})

	t.Run("empty base dir returns error", func(t *testing.T) {
		_, err := NewRunLogger("", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "empty") {
			t.Fatalf("expected empty dir error, got %v", err)
		}
	})

	t.Run("creates nested log directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "new-logs", "nested")
		logger, err := NewRunLogger(base, t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer logger.Close()

		if !strings.HasPrefix(logger.Dir, base) {
			t.Errorf("Dir %q not under %q", logger.Dir, base)
		}
	})
}

func TestRecordAndReadEntries(t *testing.T) {
	logger, err := NewRunLogger(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := logger.Record(Entry{Command: "validate", File: "data.json", Engine: "native", Valid: true}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := logger.Record(Entry{
		Command:    "validate",
		File:       "bad.json",
		Violations: 2,
		Rules:      map[string]int{"bad-enum-value": 2},
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := logger.Record(Entry{}); err == nil {
		t.Error("expected error recording after Close")
	}

	entries, err := ReadEntries(logger.LogPath)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].RunID != logger.RunID || entries[0].Time.IsZero() {
		t.Errorf("run ID and time should be filled in: %+v", entries[0])
	}
	if entries[1].Valid || entries[1].Rules["bad-enum-value"] != 2 {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestNilRunLogger(t *testing.T) {
	var logger *RunLogger
	if err := logger.Record(Entry{Command: "validate"}); err != nil {
		t.Errorf("nil logger Record: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("nil logger Close: %v", err)
	}
}

func TestFindLogDirIsStable(t *testing.T) {
	base := t.TempDir()
	work := t.TempDir()

	a, err := FindLogDir(base, work)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FindLogDir(base, work)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("FindLogDir not stable: %q vs %q", a, b)
	}
	if filepath.Dir(a) != base {
		t.Errorf("log dir %q should be directly under %q", a, base)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"roadmap-go":    "roadmap-go",
		"My Project!":   "My_Project",
		"":              "project",
		"///":           "project",
		"stations v1.2": "stations_v1.2",
	}
	for input, want := range tests {
		if got := slugify(input); got != want {
			t.Errorf("slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFindLatestLog(t *testing.T) {
	dir := t.TempDir()

	latest, err := FindLatestLog(dir)
	if err != nil || latest != "" {
		t.Fatalf("empty dir: got %q, %v", latest, err)
	}

	older := filepath.Join(dir, "20240101-000000-1.jsonl")
	newer := filepath.Join(dir, "20240102-000000-2.jsonl")
	for _, p := range []string{older, newer, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(p, []byte("{}\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	latest, err = FindLatestLog(dir)
	if err != nil {
		t.Fatal(err)
	}
	if latest != newer {
		t.Errorf("FindLatestLog = %q, want %q", latest, newer)
	}

	runs, err := FindLogRuns(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[1].RunID != "20240101-000000-1" {
		t.Errorf("FindLogRuns = %+v", runs)
	}

	if runs, err := FindLogRuns(filepath.Join(dir, "missing")); err != nil || runs != nil {
		t.Errorf("missing dir: %v, %v", runs, err)
	}
}

func TestTailLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		n    int
		want string
	}{
		{0, "one\ntwo\nthree\n"},
		{2, "two\nthree\n"},
		{10, "one\ntwo\nthree\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := TailLog(context.Background(), &buf, path, tt.n, false); err != nil {
			t.Fatalf("TailLog(n=%d): %v", tt.n, err)
		}
		if buf.String() != tt.want {
			t.Errorf("TailLog(n=%d) = %q, want %q", tt.n, buf.String(), tt.want)
		}
	}

	if err := TailLog(context.Background(), &bytes.Buffer{}, path+".missing", 0, false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTailLogFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	if err := os.WriteFile(path, []byte("one\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	if err := TailLog(ctx, &buf, path, 0, true); err != nil {
		t.Fatalf("TailLog follow: %v", err)
	}
	if buf.String() != "one\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestConsoleLogger(t *testing.T) {
	if ParseLevel("WARN") != log.WarnLevel || ParseLevel("bogus") != log.InfoLevel {
		t.Error("ParseLevel mismatch")
	}
	if ParseFormatter("json") != log.JSONFormatter || ParseFormatter("") != log.TextFormatter {
		t.Error("ParseFormatter mismatch")
	}

	var buf bytes.Buffer
	logger := NewConsole(&buf, ConsoleOptions{Level: "debug", Format: "logfmt"})
	logger.Debug("linted", "file", "data.json", "violations", 0)
	out := buf.String()
	if !strings.Contains(out, "msg=linted") || !strings.Contains(out, "file=data.json") {
		t.Errorf("unexpected output: %q", out)
	}
}
