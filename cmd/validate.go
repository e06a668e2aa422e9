package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/lint"
	"github.com/nibzard/roadmap-go/internal/logging"
	"github.com/nibzard/roadmap-go/internal/validate"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// validateCommand validates one or more roadmap files, optionally
// watching them for changes.
func validateCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("roadmap validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	watch := fs.Bool("watch", false, "Re-validate whenever a file changes")
	debounce := fs.Duration("debounce", cfg.WatchDebounce(), "Wait for writes to settle before re-validating")
	format := fs.String("format", formatText, "Output format (text|json)")
	engineName := fs.String("engine", cfg.Engine, "Validation engine (native|schema)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != formatText && *format != formatJSON {
		return fmt.Errorf("unknown format %q (expected text|json)", *format)
	}
	cfg.Engine = *engineName

	patterns := fs.Args()
	if len(patterns) == 0 {
		patterns = []string{cfg.RoadmapFile}
	}
	files, err := lint.Expand(patterns)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	history := openHistory(cfg, logger)
	defer history.Close()

	runner := lint.NewRunner(engine, logger)
	record := func(r lint.Report) {
		if err := history.Record(historyEntry(cfg, r)); err != nil {
			logger.Warn("recording history", "error", err)
		}
	}

	if *watch {
		logger.Info("watching", "files", len(files), "debounce", *debounce)
		return runner.Watch(ctx, files, *debounce, watchReporter(stdout, *format, logger, record))
	}

	reports, err := runner.Run(ctx, files)
	if err != nil {
		return err
	}
	for _, r := range reports {
		record(r)
	}

	summary := lint.Summarize(reports)
	if *format == formatJSON {
		if err := writeJSONReports(stdout, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(stdout, r)
		}
		if len(reports) > 1 {
			printSummary(stdout, summary)
		}
	}

	if !summary.OK() {
		return fmt.Errorf("validation failed: %d of %d file(s) invalid or unreadable",
			summary.Invalid+summary.Unreadable, summary.Files)
	}
	return nil
}

func historyEntry(cfg *config.Config, r lint.Report) logging.Entry {
	e := logging.Entry{
		Command:    "validate",
		File:       r.File,
		Engine:     cfg.Engine,
		Valid:      r.Valid(),
		Violations: len(r.Violations),
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	if len(r.Violations) > 0 {
		e.Rules = make(map[string]int)
		for _, v := range r.Violations {
			e.Rules[string(v.Rule)]++
		}
	}
	return e
}

func printReport(w io.Writer, r lint.Report) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "❌ %s: %v\n", r.File, r.Err)
	case len(r.Violations) == 0:
		fmt.Fprintf(w, "✅ %s: valid\n", r.File)
	default:
		fmt.Fprintf(w, "❌ %s: %d violation(s)\n", r.File, len(r.Violations))
		for _, v := range r.Violations {
			fmt.Fprintf(w, "  %s\n", v.Error())
		}
	}
}

func printSummary(w io.Writer, s lint.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d file(s), %d invalid, %d unreadable, %d violation(s)\n",
		s.Files, s.Invalid, s.Unreadable, s.Violations)
}

type jsonReport struct {
	File       string               `json:"file"`
	Valid      bool                 `json:"valid"`
	Error      string               `json:"error,omitempty"`
	Violations []validate.Violation `json:"violations"`
}

type jsonOutput struct {
	Reports []jsonReport `json:"reports"`
	Summary lint.Summary `json:"summary"`
}

// watchReporter prints and records each report produced in watch mode.
// Output failures are logged; watching continues.
func watchReporter(w io.Writer, format string, logger *log.Logger, record func(lint.Report)) func(lint.Report) {
	return func(r lint.Report) {
		record(r)
		if format == formatJSON {
			if err := writeJSONReports(w, []lint.Report{r}); err != nil {
				logger.Warn("writing report", "file", r.File, "error", err)
			}
			return
		}
		printReport(w, r)
	}
}

func writeJSONReports(w io.Writer, reports []lint.Report) error {
	out := jsonOutput{Summary: lint.Summarize(reports)}
	for _, r := range reports {
		jr := jsonReport{File: r.File, Valid: r.Valid(), Violations: r.Violations}
		if jr.Violations == nil {
			jr.Violations = []validate.Violation{}
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out.Reports = append(out.Reports, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
