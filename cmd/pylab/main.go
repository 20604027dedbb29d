// Package main is the entry point for the pylab bench runtime.
//
// Besides running a bench it offers two catalog tools:
//
//	pylab lint DIR              validate every catalog file in DIR
//	pylab help CATALOG [REGEX]  render command documentation
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dfseltzer/pylab/adapters/catalogfile"
	"github.com/dfseltzer/pylab/bootstrap"
	"github.com/dfseltzer/pylab/config"
	"github.com/dfseltzer/pylab/core/engine"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "pylab.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pylab %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	switch flag.Arg(0) {
	case "lint":
		os.Exit(runLint(flag.Arg(1)))
	case "help":
		os.Exit(runHelp(flag.Arg(1), flag.Arg(2)))
	}

	if *validate {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration valid\n")
		fmt.Printf("  Bench: %s\n", cfg.Bench)
		fmt.Printf("  Instruments: %d\n", len(cfg.Instruments))
		fmt.Printf("  Recorder: %v\n", cfg.Recorder.Enabled)
		os.Exit(0)
	}

	app, err := bootstrap.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

// runLint loads every catalog file under dir and reports definition defects.
func runLint(dir string) int {
	if dir == "" {
		fmt.Fprintln(os.Stderr, "usage: pylab lint DIR")
		return 2
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", dir, err)
		return 1
	}

	store := catalogfile.New(dir)
	failures := 0
	checked := 0
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		checked++
		name := strings.TrimSuffix(e.Name(), ext)
		catalog, err := store.Load(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", e.Name(), err)
			failures++
			continue
		}
		fmt.Printf("%s: %d commands ok\n", e.Name(), len(catalog))
	}

	if checked == 0 {
		fmt.Fprintf(os.Stderr, "no catalog files in %s\n", dir)
		return 1
	}
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d catalogs failed\n", failures, checked)
		return 1
	}
	return 0
}

// runHelp renders the documentation of catalog commands matching pattern.
func runHelp(catalog, pattern string) int {
	if catalog == "" {
		fmt.Fprintln(os.Stderr, "usage: pylab help CATALOG [REGEX]")
		return 2
	}

	eng, err := engine.New(catalogfile.New(os.Getenv("PYLAB_CATALOG_DIR")), catalog, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", catalog, err)
		return 1
	}
	eng.Help(os.Stdout, pattern)
	return 0
}
