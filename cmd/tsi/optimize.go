package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
	"github.com/GoSim-25-26J-441/tsi/internal/report"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

type optimizeArgs struct {
	payload         float64
	targetDV        float64
	engines         string
	stage1Engine    string
	stage2Engine    string
	minTWR          float64
	minUpperTWR     float64
	maxStages       int
	stages          int
	structuralRatio float64
	maxEngines      int
	strategy        string
	monteCarlo      int
	uncertainty     string
	seed            int64
	losses          bool
	output          string
	quiet           bool
}

func (a optimizeArgs) validate() error {
	var errs argErrors
	if a.payload <= 0 {
		errs.add("-payload must be positive")
	}
	if a.targetDV <= 0 {
		errs.add("-target-dv must be positive")
	}
	if a.minTWR < 1 {
		errs.add("-min-twr must be >= 1.0 for liftoff")
	}
	if a.minUpperTWR <= 0 {
		errs.add("-min-upper-twr must be positive")
	}
	if a.maxStages < 1 {
		errs.add("-max-stages must be at least 1")
	}
	if a.stages < 0 || (a.stages > 0 && a.maxStages >= 1 && a.stages > a.maxStages) {
		errs.add("-stages must be between 1 and -max-stages (%d)", a.maxStages)
	}
	if a.structuralRatio <= 0 || a.structuralRatio >= 1 {
		errs.add("-structural-ratio must be between 0 and 1")
	}
	if a.maxEngines < 1 {
		errs.add("-max-engines must be at least 1")
	}
	if _, err := optimizer.ParseStrategy(a.strategy); err != nil {
		errs.add("-optimizer must be auto, analytical or brute-force, got %q", a.strategy)
	}
	if a.monteCarlo < 0 {
		errs.add("-monte-carlo cannot be negative")
	}
	if _, err := optimizer.UncertaintyPreset(a.uncertainty); err != nil {
		errs.add("-uncertainty must be none, low, default or high, got %q", a.uncertainty)
	}
	if a.output != "pretty" && a.output != "json" {
		errs.add("-output must be pretty or json, got %q", a.output)
	}
	return errs.err()
}

func runOptimize(e *env, args []string) error {
	fs := newFlagSet("optimize", e.stderr)
	def := optimizer.DefaultConstraints()
	var a optimizeArgs
	fs.Float64Var(&a.payload, "payload", 0, "payload mass in kg")
	fs.Float64Var(&a.targetDV, "target-dv", 0, "target delta-v in m/s")
	fs.StringVar(&a.engines, "engine", "", "comma-separated candidate engines (default: whole catalog)")
	fs.StringVar(&a.stage1Engine, "stage1-engine", "", "extra candidate engine for the booster")
	fs.StringVar(&a.stage2Engine, "stage2-engine", "", "extra candidate engine for the upper stage")
	fs.Float64Var(&a.minTWR, "min-twr", def.MinLiftoffTWR.F(), "minimum liftoff thrust-to-weight ratio")
	fs.Float64Var(&a.minUpperTWR, "min-upper-twr", def.MinStageTWR.F(), "minimum upper stage thrust-to-weight ratio")
	fs.IntVar(&a.maxStages, "max-stages", def.MaxStages, "maximum number of stages")
	fs.IntVar(&a.stages, "stages", 0, "exact number of stages (0 lets the optimizer choose)")
	fs.Float64Var(&a.structuralRatio, "structural-ratio", def.StructuralRatio.F(), "structural mass / propellant mass")
	fs.IntVar(&a.maxEngines, "max-engines", def.MaxEnginesPerStage, "maximum engines per stage")
	fs.StringVar(&a.strategy, "optimizer", e.cfg.Optimizer.Strategy, "optimizer: auto, analytical or brute-force")
	fs.IntVar(&a.monteCarlo, "monte-carlo", 0, "run N Monte Carlo iterations (0 disables)")
	fs.StringVar(&a.uncertainty, "uncertainty", e.cfg.MonteCarlo.Uncertainty, "uncertainty preset: none, low, default or high")
	fs.Int64Var(&a.seed, "seed", e.cfg.MonteCarlo.Seed, "Monte Carlo seed (0 picks one)")
	fs.BoolVar(&a.losses, "losses", false, "add an ascent loss estimate")
	fs.StringVar(&a.output, "output", "pretty", "output format: pretty or json")
	fs.BoolVar(&a.quiet, "quiet", false, "suppress progress output")

	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	a.output = strings.ToLower(a.output)
	if err := a.validate(); err != nil {
		return err
	}

	candidates, err := e.candidateEngines(a)
	if err != nil {
		return err
	}

	c := optimizer.Constraints{
		MinLiftoffTWR:      units.Ratio(a.minTWR),
		MinStageTWR:        units.Ratio(a.minUpperTWR),
		MaxStages:          a.maxStages,
		StructuralRatio:    units.Ratio(a.structuralRatio),
		MaxEnginesPerStage: a.maxEngines,
	}
	p := optimizer.NewProblem(units.Kilograms(a.payload), units.MetersPerSecond(a.targetDV), candidates, c).
		WithStageCount(a.stages)
	if err := p.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress *progressLine
	if a.output == "pretty" && !a.quiet {
		progress = newProgressLine(e.stderr)
	}

	sol, mc, err := e.solve(ctx, p, a, progress)
	progress.done()
	if err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		return err
	}

	if a.output == "json" {
		doc := report.NewSolutionDocument(sol, mc)
		if a.losses {
			doc = doc.WithLosses(sol.Rocket)
		}
		return report.WriteJSON(e.stdout, doc)
	}

	report.Solution(e.stdout, sol)
	fmt.Fprintln(e.stdout)
	report.WriteDiagram(e.stdout, sol.Rocket)
	if mc != nil {
		report.MonteCarlo(e.stdout, mc)
	}
	if a.losses {
		fmt.Fprintln(e.stdout)
		report.Losses(e.stdout, sol.Rocket)
	}
	return nil
}

// candidateEngines resolves -engine plus the per-stage engines, reporting
// every unknown name at once.
func (e *env) candidateEngines(a optimizeArgs) ([]engine.Engine, error) {
	var names []string
	for _, n := range strings.Split(a.engines, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 && a.stage1Engine == "" && a.stage2Engine == "" {
		return e.catalog.List(), nil
	}
	for _, n := range []string{a.stage1Engine, a.stage2Engine} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	var (
		out  []engine.Engine
		errs argErrors
		seen = make(map[string]bool)
	)
	for _, n := range names {
		eng, err := e.lookupEngine(n)
		if err != nil {
			errs.add("%v", err)
			continue
		}
		if seen[eng.Name] {
			continue
		}
		seen[eng.Name] = true
		out = append(out, eng)
	}
	if err := errs.err(); err != nil {
		return nil, fmt.Errorf("%w\nrun `tsi engines` to see all engines", err)
	}
	return out, nil
}

func (e *env) solve(ctx context.Context, p optimizer.Problem, a optimizeArgs, progress *progressLine) (*optimizer.Solution, *optimizer.MonteCarloResults, error) {
	strategy, err := optimizer.ParseStrategy(a.strategy)
	if err != nil {
		return nil, nil, err
	}
	bf := optimizer.BruteForceOptionsFromConfig(e.cfg.Optimizer)

	if a.monteCarlo == 0 {
		progress.label("optimizing")
		solver := &optimizer.Solver{
			Strategy:   strategy,
			BruteForce: bf,
			Progress:   progress.report,
			Logger:     logger.Default,
		}
		sol, err := solver.Solve(ctx, p)
		return sol, nil, err
	}

	u, err := optimizer.UncertaintyPreset(a.uncertainty)
	if err != nil {
		return nil, nil, err
	}
	opts, err := optimizer.MonteCarloOptionsFromConfig(e.cfg.Optimizer, e.cfg.MonteCarlo)
	if err != nil {
		return nil, nil, err
	}
	opts.Strategy = strategy
	opts.Seed = a.seed

	progress.label(fmt.Sprintf("monte carlo (%d runs)", a.monteCarlo))
	mc, err := optimizer.NewMonteCarlo(u, opts).
		WithProgressReporter(progress.report).
		WithLogger(logger.Default).
		Run(ctx, p, a.monteCarlo)
	if err != nil {
		return nil, nil, err
	}
	return mc.Nominal, mc, nil
}

// progressLine redraws a single percentage line on a terminal. A nil
// *progressLine discards everything.
type progressLine struct {
	mu   sync.Mutex
	w    io.Writer
	name string
	last int
	used bool
}

func newProgressLine(w io.Writer) *progressLine {
	return &progressLine{w: w, last: -1}
}

func (p *progressLine) label(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

func (p *progressLine) report(percent float64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pct := int(percent)
	if pct <= p.last {
		return
	}
	p.last = pct
	p.used = true
	fmt.Fprintf(p.w, "\r  %s... %3d%%", p.name, pct)
}

func (p *progressLine) done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used {
		fmt.Fprintln(p.w)
	}
}

// errInterrupted is reported when the user stops a long search.
var errInterrupted = errors.New("interrupted")
