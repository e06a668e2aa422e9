// Package lint validates many roadmap files at once and re-validates them
// as they change on disk.
package lint

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/nibzard/roadmap-go/internal/roadmap"
	"github.com/nibzard/roadmap-go/internal/validate"
)

// Engine validates a decoded document tree.
type Engine interface {
	Validate(doc any) *validate.Result
}

// Report is the outcome of linting a single file.
type Report struct {
	File       string               `json:"file"`
	Violations []validate.Violation `json:"violations"`
	// Err is set when the file could not be read. Parse failures are
	// reported as a malformed-document violation instead.
	Err error `json:"-"`
}

// Valid reports whether the file was read and has no violations.
func (r Report) Valid() bool {
	return r.Err == nil && len(r.Violations) == 0
}

// Runner lints files with a validation engine.
type Runner struct {
	Engine Engine
	// Concurrency bounds the number of files validated at once.
	// Zero means runtime.NumCPU().
	Concurrency int
	Logger      *log.Logger
}

// NewRunner returns a Runner using engine.
func NewRunner(engine Engine, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Engine: engine, Logger: logger}
}

// Expand resolves literal paths and doublestar globs into a sorted,
// de-duplicated file list. A glob that matches nothing is an error; a
// literal path is kept as is so a missing file shows up in its report.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !isGlob(pattern) {
			if !seen[pattern] {
				seen[pattern] = true
				files = append(files, pattern)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Run lints files concurrently and returns one report per file in input
// order. It only fails when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, files []string) ([]Report, error) {
	reports := make([]Report, len(files))

	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = r.File(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// File lints a single file.
func (r *Runner) File(path string) Report {
	report := Report{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		report.Err = fmt.Errorf("read %s: %w", path, err)
		r.logger().Debug("read failed", "file", path, "error", err)
		return report
	}

	report.Violations = r.Bytes(data, roadmap.FormatFromPath(path)).Violations
	r.logger().Debug("linted", "file", path, "violations", len(report.Violations))
	return report
}

// Bytes decodes and validates an in-memory document.
func (r *Runner) Bytes(data []byte, format roadmap.Format) *validate.Result {
	doc, err := roadmap.Decode(data, format)
	if err != nil {
		result := &validate.Result{}
		result.Add(nil, validate.RuleMalformed, "%s", err.Error())
		return result
	}
	return r.Engine.Validate(doc)
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// Summary counts files and violations across reports.
type Summary struct {
	Files      int `json:"files"`
	Invalid    int `json:"invalid"`
	Unreadable int `json:"unreadable"`
	Violations int `json:"violations"`
}

// Summarize aggregates reports.
func Summarize(reports []Report) Summary {
	s := Summary{Files: len(reports)}
	for _, report := range reports {
		switch {
		case report.Err != nil:
			s.Unreadable++
		case len(report.Violations) > 0:
			s.Invalid++
		}
		s.Violations += len(report.Violations)
	}
	return s
}

// OK reports whether every file was read and valid.
func (s Summary) OK() bool {
	return s.Invalid == 0 && s.Unreadable == 0
}
