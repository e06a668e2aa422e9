// Package cmd implements the CLI command structure for roadmap.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/lint"
	"github.com/nibzard/roadmap-go/internal/logging"
	"github.com/nibzard/roadmap-go/internal/schema"
	"github.com/nibzard/roadmap-go/internal/validate"
)

// Version is set via ldflags at build time.
var Version = "dev"

// stdout and stderr are swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run executes the roadmap CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("roadmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// If no args or first arg is a flag, validate is the default
	subcommand := "validate"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "validate", "lint":
		return validateCommand(ctx, cfg, remainingArgs)
	case "status":
		return statusCommand(cfg, remainingArgs)
	case "milestones":
		return milestonesCommand(cfg, remainingArgs)
	case "delays":
		return delaysCommand(cfg, remainingArgs)
	case "critical-path":
		return criticalPathCommand(cfg, remainingArgs)
	case "chart":
		return chartCommand(cfg, remainingArgs)
	case "schema":
		return schemaCommand(cfg, remainingArgs)
	case "serve":
		return serveCommand(ctx, cfg, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "doctor":
		return doctorCommand(cfg, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "config":
		return configCommand(cws, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		// A bare file or glob is shorthand for validate
		if fi, err := os.Stat(subcommand); (err == nil && !fi.IsDir()) || strings.ContainsAny(subcommand, "*?[{") {
			return validateCommand(ctx, cfg, fs.Args())
		}
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// newEngine builds the validation engine selected by cfg.
func newEngine(cfg *config.Config) (lint.Engine, error) {
	switch cfg.Engine {
	case config.EngineSchema:
		v, err := schema.Compile(schema.Options{
			Path:           cfg.SchemaFile,
			Strict:         cfg.Strict,
			LexicalDates:   cfg.LexicalDates,
			CheckDateOrder: cfg.CheckDateOrder,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.EngineNative, "":
		return validate.New(validate.Options{
			Strict:         cfg.Strict,
			LexicalDates:   cfg.LexicalDates,
			CheckDateOrder: cfg.CheckDateOrder,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (expected %s|%s)", cfg.Engine, config.EngineNative, config.EngineSchema)
	}
}

// newLogger builds the console logger from the logging settings in cfg.
func newLogger(cfg *config.Config) *log.Logger {
	return logging.NewConsole(stderr, logging.ConsoleOptions{
		Level:           cfg.LogLevel,
		Format:          cfg.LogFormat,
		ReportTimestamp: cfg.LogTimestamps,
		ReportCaller:    cfg.LogCaller,
	})
}

// openHistory returns the run logger, or nil when history is disabled or
// the log directory cannot be created.
func openHistory(cfg *config.Config, logger *log.Logger) *logging.RunLogger {
	if !cfg.History {
		return nil
	}
	history, err := logging.NewRunLogger(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	logger.Debug("recording history", "path", history.LogPath)
	return history
}

// resolvePath makes path absolute against the project root.
func resolvePath(cfg *config.Config, path string) string {
	if path == "" {
		path = cfg.RoadmapFile
	}
	if filepath.IsAbs(path) || cfg.ProjectRoot == "" {
		return path
	}
	return filepath.Join(cfg.ProjectRoot, path)
}

// singleFile returns the optional file argument, defaulting to the
// configured roadmap file.
func singleFile(cfg *config.Config, args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("unexpected arguments: %v", args[1:])
	}
	if len(args) == 1 {
		return resolvePath(cfg, args[0]), nil
	}
	return resolvePath(cfg, ""), nil
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Fprintf(stdout, "roadmap version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Roadmap - validate and query station roadmap files")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  roadmap [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  validate [files|globs]   Validate roadmap files (default command)")
	fmt.Fprintln(w, "  status [station]         Show stage progress per station")
	fmt.Fprintln(w, "  milestones -from -to     List milestones in a date range")
	fmt.Fprintln(w, "  delays [-as-of] [-n]     List overdue stages")
	fmt.Fprintln(w, "  critical-path [-n]       List the longest stages")
	fmt.Fprintln(w, "  chart [-o file]          Render an HTML Gantt chart")
	fmt.Fprintln(w, "  schema [-o file]         Print the roadmap JSON Schema")
	fmt.Fprintln(w, "  serve [-addr]            Serve the HTTP API")
	fmt.Fprintln(w, "  tui [file]               Launch the terminal dashboard")
	fmt.Fprintln(w, "  doctor [file]            Check config and the roadmap file")
	fmt.Fprintln(w, "  tail [-n] [-f] [-list]   Show validation history")
	fmt.Fprintln(w, "  config [-example]        Show the effective configuration")
	fmt.Fprintln(w, "  version                  Show version information")
	fmt.Fprintln(w, "  help                     Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Validate Options:")
	fmt.Fprintln(w, "  -watch")
	fmt.Fprintln(w, "        Re-validate whenever a file changes")
	fmt.Fprintln(w, "  -debounce duration")
	fmt.Fprintln(w, "        Wait for writes to settle before re-validating")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintln(w, "        Output format (text|json)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options:")
	fmt.Fprintln(w, "  -f, -follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
	fmt.Fprintln(w, "  -list")
	fmt.Fprintln(w, "        List recorded runs instead")
}
