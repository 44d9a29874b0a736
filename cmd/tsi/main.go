package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

const usage = `tsi - rocket staging optimizer

Usage:
  tsi [-config file] [-log-level level] <command> [flags]

Commands:
  calculate   delta-v, burn time and TWR for a single stage
  engines     list the engine catalog
  optimize    find the lightest rocket for a payload and delta-v target

Examples:
  tsi calculate -engine raptor-2 -propellant-mass 100000
  tsi engines -propellant methane
  tsi optimize -payload 5000 -target-dv 9000 -engine raptor-2 -stages 2
`

// errUsage is returned after usage text has already been printed.
var errUsage = errors.New("usage")

// argErrors collects every invalid flag so they can be reported together.
type argErrors []string

func (e *argErrors) add(format string, args ...any) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

func (e argErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("invalid arguments:")
	for _, msg := range e {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return errors.New(b.String())
}

// env is what every subcommand needs besides its flags.
type env struct {
	cfg     *config.Config
	catalog *engine.Catalog
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tsi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to YAML config file")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	// Logs go to stderr so JSON output stays clean.
	logger.SetDefault(logger.NewWithFormat("text", cfg.Log.Level, stderr))

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	e := &env{cfg: cfg, catalog: catalog, stdout: stdout, stderr: stderr}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "calculate":
		err = runCalculate(e, rest)
	case "engines":
		err = runEngines(e, rest)
	case "optimize":
		err = runOptimize(e, rest)
	case "help", "-h", "--help":
		fs.Usage()
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func loadCatalog(path string) (*engine.Catalog, error) {
	if path == "" {
		return engine.LoadEmbedded()
	}
	return engine.LoadFile(path)
}

// lookupEngine resolves name or explains what was meant.
func (e *env) lookupEngine(name string) (engine.Engine, error) {
	if eng, ok := e.catalog.Get(name); ok {
		return eng, nil
	}
	msg := fmt.Sprintf("unknown engine %q", name)
	if s := e.catalog.Suggest(name); len(s) > 0 {
		msg += " (did you mean " + strings.Join(s, ", ") + "?)"
	}
	return engine.Engine{}, errors.New(msg)
}

// newFlagSet returns a subcommand flag set that reports parse errors
// instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("tsi "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) (map[string]bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return nil, errUsage
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set, nil
}
