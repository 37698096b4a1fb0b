// Package main is the entry point for the flextoolbar preview.
//
// It loads the toolbar for a document the way an editor would and either
// draws it in the terminal or, when stdout is not a terminal, prints the
// resulting entries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/render"
	"github.com/dshills/flextoolbar/internal/settings"
	"github.com/dshills/flextoolbar/internal/toolbar"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	settingsPath  string
	configDir     string
	projects      stringList
	packages      stringList
	grammar       string
	logLevel      string
	plain         bool
	printSettings bool
	showVersion   bool
	file          string
}

// stringList is a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "flextoolbar %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	s, err := loadSettings(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.printSettings {
		if err := s.Encode(stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	logger := logging.New(logging.Config{
		Level:  s.Level(),
		Output: stderr,
		Prefix: "flextoolbar",
	})

	host := newHost(opts)

	if !opts.plain && isTerminal(stdout) {
		return runScreen(ctx, s, opts, host, logger, stderr)
	}
	return runPlain(ctx, s, opts, host, logger, stdout, stderr)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("flextoolbar", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.settingsPath, "settings", "", "Path to settings.toml (default: user config dir)")
	fs.StringVar(&opts.configDir, "config-dir", "", "Directory holding the global toolbar config")
	fs.Var(&opts.projects, "project", "Project root folder (repeatable)")
	fs.Var(&opts.projects, "p", "Project root folder (shorthand)")
	fs.Var(&opts.packages, "package", "Active package name (repeatable)")
	fs.StringVar(&opts.grammar, "grammar", "", "Grammar of the document (default: guessed from extension)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.plain, "plain", false, "Print the toolbar instead of drawing it")
	fs.BoolVar(&opts.printSettings, "print-settings", false, "Print the effective settings as TOML")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "flextoolbar - configurable toolbar preview\n\n")
		fmt.Fprintf(stderr, "Usage: flextoolbar [options] [file]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  flextoolbar main.go                 Toolbar for main.go\n")
		fmt.Fprintf(stderr, "  flextoolbar -p . -plain README.md   Print the project toolbar\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() > 0 {
		if abs, err := filepath.Abs(fs.Arg(0)); err == nil {
			opts.file = abs
		}
	}
	if len(opts.projects) == 0 && opts.file != "" {
		opts.projects = stringList{filepath.Dir(opts.file)}
	}
	return opts, nil
}

func loadSettings(opts options) (settings.Settings, error) {
	path := opts.settingsPath
	if path == "" {
		if p, err := settings.DefaultPath(); err == nil {
			path = p
		}
	}

	s, err := settings.Load(path)
	if err != nil {
		return s, err
	}
	if err := s.ApplyEnv(); err != nil {
		return s, err
	}
	if opts.logLevel != "" {
		s.LogLevel = opts.logLevel
	}
	return s, s.Validate()
}

// runPlain reloads once and prints the visible entries.
func runPlain(ctx context.Context, s settings.Settings, opts options, host *previewHost, logger *logging.Logger, stdout, stderr io.Writer) int {
	s.ReloadToolbarWhenEditConfigFile = false

	rec := render.NewRecorder()
	c, err := toolbar.New(toolbar.Options{
		Renderer:  rec,
		Host:      host,
		Settings:  s,
		ConfigDir: opts.configDir,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := c.Activate(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer c.Deactivate()

	src := c.Source()
	fmt.Fprintf(stdout, "global:  %s\n", src.Global)
	if src.Project != "" {
		fmt.Fprintf(stdout, "project: %s\n", src.Project)
	}
	for _, it := range rec.Sorted() {
		fmt.Fprintln(stdout, describe(it))
	}
	return 0
}

func describe(it render.Item) string {
	if it.Kind == render.KindSpacer {
		return fmt.Sprintf("%4d  ----", it.Spacer.Priority)
	}
	b := it.Button
	line := fmt.Sprintf("%4d  %-16s %s", b.Priority, it.Label(), b.Tooltip)
	if b.Disabled {
		line += " (disabled)"
	}
	return strings.TrimRight(line, " ")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
