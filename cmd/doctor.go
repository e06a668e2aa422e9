package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/roadmap-go/internal/config"
	"github.com/nibzard/roadmap-go/internal/logging"
	"github.com/nibzard/roadmap-go/internal/roadmap"
	"github.com/nibzard/roadmap-go/internal/schema"
	"github.com/nibzard/roadmap-go/internal/validate"
)

// doctorCommand checks the configuration, the roadmap file and the
// history directory.
func doctorCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("roadmap doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFile(cfg, fs.Args())
	if err != nil {
		return err
	}

	w := stdout
	fmt.Fprintln(w, "Roadmap Doctor")
	fmt.Fprintln(w, "==============")
	fmt.Fprintln(w)

	allOK := true

	// Check project root
	fmt.Fprintf(w, "Project root: %s\n", cfg.ProjectRoot)
	if _, err := os.Stat(cfg.ProjectRoot); err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintln(w, "  ✅ OK")
	}
	fmt.Fprintln(w)

	// Check config
	fmt.Fprintln(w, "Config:")
	engine, err := newEngine(cfg)
	if err != nil {
		fmt.Fprintf(w, "  ❌ Engine %s: %v\n", cfg.Engine, err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  ✅ Engine: %s\n", cfg.Engine)
	}
	if cfg.SchemaFile != "" {
		if cfg.Engine != config.EngineSchema {
			fmt.Fprintf(w, "  ⚠️  Schema file %s is ignored by the %s engine\n", cfg.SchemaFile, cfg.Engine)
		} else if engine != nil {
			fmt.Fprintf(w, "  ✅ Schema file: %s\n", cfg.SchemaFile)
		}
	}
	if *verbose {
		fmt.Fprintf(w, "  Strict: %t  Lexical dates: %t  Date order: %t\n", cfg.Strict, cfg.LexicalDates, cfg.CheckDateOrder)
	}
	fmt.Fprintln(w)

	// Check roadmap file
	fmt.Fprintf(w, "Roadmap file: %s\n", path)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	} else if doc, err := roadmap.DecodeFile(path); err != nil {
		fmt.Fprintf(w, "  ❌ Parse error: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintln(w, "  ✅ Parses")
		if engine != nil {
			result := engine.Validate(doc)
			if result.Valid() {
				fmt.Fprintln(w, "  ✅ Valid")
			} else {
				fmt.Fprintf(w, "  ❌ %d violation(s)\n", len(result.Violations))
				counts := result.Counts()
				rules := make([]validate.Rule, 0, len(counts))
				for rule := range counts {
					rules = append(rules, rule)
				}
				sort.Slice(rules, func(i, j int) bool { return rules[i] < rules[j] })
				for _, rule := range rules {
					fmt.Fprintf(w, "     %s: %d\n", rule, counts[rule])
				}
				allOK = false
			}
		}
		if rm, err := roadmap.FromTree(doc); err == nil {
			fmt.Fprintf(w, "  Stations: %d  Portions: %d  Stages: %d\n",
				len(rm.Stations), len(rm.Portions()), rm.StageCount())
			if rm.Schema != "" {
				checkSchemaRef(w, path, rm.Schema)
			}
		}
	}
	fmt.Fprintln(w)

	// Check history
	fmt.Fprintln(w, "History:")
	if !cfg.History {
		fmt.Fprintln(w, "  ⚠️  Disabled")
	} else if logDir, err := logging.FindLogDir(cfg.LogDir, cfg.ProjectRoot); err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	} else if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(w, "  ❌ Cannot create %s: %v\n", logDir, err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  ✅ %s\n", logDir)
	}
	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(w, "  ⚠️  git not found; logs are keyed by working directory")
	}
	fmt.Fprintln(w)

	if allOK {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}

// checkSchemaRef reports whether a relative "$schema" reference resolves.
func checkSchemaRef(w io.Writer, roadmapPath, ref string) {
	if filepath.IsAbs(ref) || hasScheme(ref) {
		fmt.Fprintf(w, "  $schema: %s\n", ref)
		return
	}
	target := filepath.Join(filepath.Dir(roadmapPath), ref)
	if _, err := os.Stat(target); err != nil {
		fmt.Fprintf(w, "  ⚠️  $schema %s not found (write it with: roadmap schema -o %s)\n", ref, target)
		return
	}
	if _, err := schema.Compile(schema.Options{Path: target}); err != nil {
		fmt.Fprintf(w, "  ⚠️  $schema %s does not compile: %v\n", ref, err)
		return
	}
	fmt.Fprintf(w, "  ✅ $schema: %s\n", ref)
}

func hasScheme(ref string) bool {
	for i := 0; i < len(ref); i++ {
		switch c := ref[i]; {
		case c == ':':
			return i > 1
		case c == '/' || c == '.':
			return false
		}
	}
	return false
}

// configCommand prints the effective configuration and where each value
// came from.
func configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("roadmap config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	example := fs.Bool("example", false, "Print an example config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *example {
		fmt.Fprint(stdout, config.ExampleConfig())
		return nil
	}

	if file := cws.GetConfigFile(); file != "" {
		fmt.Fprintf(stdout, "# Active config file: %s\n", file)
	} else {
		fmt.Fprintln(stdout, "# No config file found; using defaults")
	}
	fmt.Fprintf(stdout, "# Project root: %s\n\n", cws.Config.ProjectRoot)
	if err := toml.NewEncoder(stdout).Encode(cws.Config); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	fields := make([]string, 0, len(cws.Sources))
	for field := range cws.Sources {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	fmt.Fprintln(stdout)
	t := newTable("Key", "Source")
	for _, field := range fields {
		t.Row(field, string(cws.Sources[field]))
	}
	fmt.Fprintln(stdout, t.Render())
	return nil
}
