package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// DefaultMonteCarloIterations is used when no iteration count is configured.
const DefaultMonteCarloIterations = 1000

// MonteCarloOptions configure a Monte Carlo run.
type MonteCarloOptions struct {
	// Seed fixes the run. Zero draws a random seed, which is reported in
	// the results so the run can be repeated.
	Seed int64 `json:"seed" yaml:"seed"`
	// Workers caps concurrent samples. Zero means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
	// Strategy solves the nominal problem. Samples always use automatic
	// selection.
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	// BruteForce configures the search for both the nominal problem and
	// the samples. Samples run it single-threaded.
	BruteForce BruteForceOptions `json:"brute_force" yaml:"brute_force"`
}

// MonteCarlo propagates parameter uncertainty through the optimizers by
// re-solving perturbed copies of a problem.
type MonteCarlo struct {
	u        Uncertainty
	opts     MonteCarloOptions
	progress ProgressFunc
	log      *slog.Logger
}

// NewMonteCarlo creates a runner for u.
func NewMonteCarlo(u Uncertainty, opts MonteCarloOptions) *MonteCarlo {
	return &MonteCarlo{u: u, opts: opts, log: logger.Default}
}

// WithProgressReporter sets a callback receiving the percentage of samples
// done. Updates are throttled; 100 is always reported on completion.
func (m *MonteCarlo) WithProgressReporter(fn ProgressFunc) *MonteCarlo {
	m.progress = fn
	return m
}

// WithLogger overrides the package default logger.
func (m *MonteCarlo) WithLogger(l *slog.Logger) *MonteCarlo {
	m.log = l
	return m
}

type sampleResult struct {
	ok       bool
	deltaV   float64
	mass     float64
	achieved bool
}

// Run solves p once at nominal values and then iterations more times with
// perturbed engines and structural ratio. Invalid input and a failing
// nominal solve are returned as errors; failing samples are only counted.
func (m *MonteCarlo) Run(ctx context.Context, p Problem, iterations int) (*MonteCarloResults, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return nil, invalidProblem(err)
	}
	if err := m.u.Validate(); err != nil {
		return nil, fmt.Errorf("uncertainty: %w", err)
	}

	nominalSolver := &Solver{Strategy: m.opts.Strategy, BruteForce: m.opts.BruteForce, Logger: m.log}
	nominal, err := nominalSolver.Solve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("nominal solve: %w", err)
	}

	target := p.TargetDV
	if m.u.IsZero() {
		m.finish()
		return &MonteCarloResults{
			DeltaVSamples: []float64{nominal.Rocket.TotalDeltaV().Mps()},
			MassSamples:   []float64{nominal.Rocket.TotalMass().Kg()},
			Successes:     1,
			TotalRuns:     1,
			Target:        target,
			Runtime:       time.Since(start),
			Nominal:       nominal,
			Seed:          m.opts.Seed,
			Uncertainty:   m.u,
		}, nil
	}

	if iterations < 1 {
		return nil, fmt.Errorf("monte carlo iterations must be positive, got %d", iterations)
	}

	seed := m.opts.Seed
	if seed == 0 {
		seed = utils.Int63()
	}

	sampleOpts := m.opts.BruteForce
	sampleOpts.Workers = 1
	sampleSolver := &Solver{Strategy: StrategyAuto, BruteForce: sampleOpts, Logger: logger.Discard()}

	workers := m.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	m.log.Debug("monte carlo run",
		"iterations", iterations,
		"seed", seed,
		"workers", workers,
		"isp_pct", m.u.IspPercent,
		"thrust_pct", m.u.ThrustPercent,
		"structural_pct", m.u.StructuralPercent)

	tracker := newProgressTracker(m.progress)
	results := make([]sampleResult, iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var done atomic.Int64
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sampler := NewSampler(m.u, utils.NewRandSource(utils.DeriveSeed(seed, uint64(i))))
			sol, err := sampleSolver.Solve(gctx, sampler.PerturbProblem(p))
			if err == nil {
				dv := sol.Rocket.TotalDeltaV()
				results[i] = sampleResult{
					ok:       true,
					deltaV:   dv.Mps(),
					mass:     sol.Rocket.TotalMass().Kg(),
					achieved: dv >= target,
				}
			}
			n := done.Add(1)
			tracker.report(100 * float64(n) / float64(iterations))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo interrupted: %w", err)
	}
	tracker.finish()

	out := &MonteCarloResults{
		DeltaVSamples: make([]float64, 0, iterations),
		MassSamples:   make([]float64, 0, iterations),
		TotalRuns:     iterations,
		Target:        target,
		Nominal:       nominal,
		Seed:          seed,
		Uncertainty:   m.u,
	}
	for _, r := range results {
		if !r.ok {
			out.Failures++
			continue
		}
		out.DeltaVSamples = append(out.DeltaVSamples, r.deltaV)
		out.MassSamples = append(out.MassSamples, r.mass)
		if r.achieved {
			out.Successes++
		}
	}
	out.Runtime = time.Since(start)

	m.log.Debug("monte carlo finished",
		"successes", out.Successes,
		"failures", out.Failures,
		"runtime", utils.FormatDuration(out.Runtime))
	return out, nil
}

func (m *MonteCarlo) finish() {
	if m.progress != nil {
		m.progress(100)
	}
}
