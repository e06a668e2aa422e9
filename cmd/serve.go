package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/server"
	"github.com/nibzard/roadmap-go/internal/ui"
)

// serveCommand runs the HTTP API until ctx is cancelled.
func serveCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("roadmap serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.ServeAddr(), "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFile(cfg, fs.Args())
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	srv := server.New(server.Config{
		Addr:        *addr,
		RoadmapFile: path,
		Engine:      engine,
		Strict:      cfg.Strict,
		ChartTitle:  cfg.ChartTitle(),
		Logger:      newLogger(cfg),
	})
	return srv.ListenAndServe(ctx)
}

// tuiCommand launches the terminal dashboard.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("roadmap tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFile(cfg, fs.Args())
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	return ui.RunTUI(ctx, cfg, engine, path)
}
