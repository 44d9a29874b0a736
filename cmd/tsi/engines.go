package main

import (
	"errors"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/internal/report"
)

func runEngines(e *env, args []string) error {
	fs := newFlagSet("engines", e.stderr)
	output := fs.String("output", "table", "output format: table or json")
	propellant := fs.String("propellant", "", "filter by propellant (e.g. methane, loxrp1, hydrolox)")
	name := fs.String("name", "", "filter by name (case-insensitive substring)")
	verbose := fs.Bool("verbose", false, "include sea-level thrust, Isp and T/W")

	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	format := strings.ToLower(*output)
	if format != "table" && format != "json" {
		var errs argErrors
		errs.add("-output must be table or json, got %q", *output)
		return errs.err()
	}

	engines := e.catalog.Filter(*propellant, *name)
	if len(engines) == 0 {
		msg := "no engines found"
		if *propellant != "" || *name != "" {
			msg += " matching the filter"
		}
		return errors.New(msg + "; run `tsi engines` to see all engines")
	}

	if format == "json" {
		return report.WriteJSON(e.stdout, engines)
	}
	report.EngineTable(e.stdout, engines, *verbose)
	return nil
}
