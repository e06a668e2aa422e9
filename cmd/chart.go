package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nibzard/roadmap-go/internal/chart"
	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/schema"
)

// chartCommand renders the roadmap as an HTML Gantt chart.
func chartCommand(cfg *config.Config, args []string) error {
	q := newQueryFlags("chart")
	output := q.fs.String("o", cfg.ChartOutput(), "Output file (- for stdout)")
	title := q.fs.String("title", cfg.ChartTitle(), "Chart title")
	today := q.fs.String("today", "", "Date of the today marker (YYYY-MM-DD, default today)")
	if err := q.fs.Parse(args); err != nil {
		return err
	}
	if len(q.fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", q.fs.Args())
	}
	ref, err := referenceDate(*today)
	if err != nil {
		return fmt.Errorf("-today: %w", err)
	}

	rm, err := q.load(cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, rm, chart.Options{Title: *title, Today: ref}); err != nil {
		return err
	}

	if *output == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	path := *output
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ProjectRoot, path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(stdout, "Chart written to %s\n", path)
	return nil
}

// schemaCommand prints or writes the roadmap JSON Schema.
func schemaCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("roadmap schema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "Write the schema to a file instead of stdout")
	strict := fs.Bool("strict", cfg.Strict, "Close portion, stage and milestone records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	data, err := schema.Document(*strict)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	fmt.Fprintf(stdout, "Schema written to %s\n", *output)
	return nil
}
