package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/internal/stage"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// NameBruteForce is reported in Solution.Optimizer.
const NameBruteForce = "BruteForce"

// coarsePhaseWeight is the share of the progress bar given to the coarse grid.
const coarsePhaseWeight = 80.0

// BruteForceOptions tune the grid search.
type BruteForceOptions struct {
	// PropellantSteps is the number of log-spaced propellant values per stage.
	PropellantSteps int `json:"propellant_steps" yaml:"propellant_steps"`
	// MinPropellant and MaxPropellant bound the coarse grid.
	MinPropellant units.Mass `json:"min_propellant_kg" yaml:"min_propellant_kg"`
	MaxPropellant units.Mass `json:"max_propellant_kg" yaml:"max_propellant_kg"`
	// TopK limits how many ranked engines are tried per stage position.
	TopK int `json:"top_k" yaml:"top_k"`
	// RefineSteps is the number of propellant values in the refinement window.
	// NoRefinement skips the refinement pass.
	RefineSteps int `json:"refine_steps" yaml:"refine_steps"`
	// RefineWindow is the relative half-width of the refinement window.
	RefineWindow float64 `json:"refine_window" yaml:"refine_window"`
	// RefineAlternatives is how many other ranked engines are retried per
	// stage during refinement.
	RefineAlternatives int `json:"refine_alternatives" yaml:"refine_alternatives"`
	// Workers caps concurrent work items. Zero means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// NoRefinement disables the refinement pass when set as RefineSteps.
const NoRefinement = -1

// DefaultBruteForceOptions returns the standard search grid.
func DefaultBruteForceOptions() BruteForceOptions {
	return BruteForceOptions{
		PropellantSteps:    20,
		MinPropellant:      units.Kilograms(10_000),
		MaxPropellant:      units.Kilograms(5_000_000),
		TopK:               3,
		RefineSteps:        9,
		RefineWindow:       0.3,
		RefineAlternatives: 2,
	}
}

// Validate checks the grid parameters.
func (o BruteForceOptions) Validate() error {
	if o.PropellantSteps < 2 {
		return fmt.Errorf("propellant_steps must be at least 2, got %d", o.PropellantSteps)
	}
	if o.MinPropellant <= 0 || o.MaxPropellant <= o.MinPropellant {
		return fmt.Errorf("propellant bounds must satisfy 0 < min < max, got %v..%v", o.MinPropellant.Kg(), o.MaxPropellant.Kg())
	}
	if o.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", o.TopK)
	}
	if o.RefineSteps == 1 {
		return fmt.Errorf("refine_steps must be at least 2, got 1")
	}
	if o.RefineAlternatives < 0 || o.Workers < 0 {
		return fmt.Errorf("refine_alternatives and workers cannot be negative")
	}
	if o.RefineWindow < 0 || o.RefineWindow >= 1 {
		return fmt.Errorf("refine_window must be in [0, 1), got %v", o.RefineWindow)
	}
	return nil
}

func (o BruteForceOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ProgressFunc receives the percentage of work completed, 0..100.
type ProgressFunc func(percent float64)

// BruteForce searches stage count × engine choice × engine count ×
// propellant mass for the lightest rocket meeting the target.
type BruteForce struct {
	opts     BruteForceOptions
	progress ProgressFunc
	log      *slog.Logger
}

// NewBruteForce creates a grid-search optimizer. Zero-valued options are
// filled from DefaultBruteForceOptions; use NoRefinement to skip refinement.
func NewBruteForce(opts BruteForceOptions) *BruteForce {
	def := DefaultBruteForceOptions()
	if opts.PropellantSteps == 0 {
		opts.PropellantSteps = def.PropellantSteps
	}
	if opts.MinPropellant == 0 {
		opts.MinPropellant = def.MinPropellant
	}
	if opts.MaxPropellant == 0 {
		opts.MaxPropellant = def.MaxPropellant
	}
	if opts.TopK == 0 {
		opts.TopK = def.TopK
	}
	if opts.RefineSteps == 0 {
		opts.RefineSteps = def.RefineSteps
	}
	if opts.RefineWindow == 0 {
		opts.RefineWindow = def.RefineWindow
	}
	if opts.RefineAlternatives == 0 {
		opts.RefineAlternatives = def.RefineAlternatives
	}
	return &BruteForce{opts: opts, log: logger.Default}
}

// WithProgressReporter sets a callback for progress updates. Updates are
// throttled; 100 is always reported on completion.
func (b *BruteForce) WithProgressReporter(fn ProgressFunc) *BruteForce {
	b.progress = fn
	return b
}

// WithLogger overrides the package default logger.
func (b *BruteForce) WithLogger(l *slog.Logger) *BruteForce {
	b.log = l
	return b
}

// Options returns the effective options.
func (b *BruteForce) Options() BruteForceOptions { return b.opts }

// Name implements Optimizer.
func (b *BruteForce) Name() string { return NameBruteForce }

// Optimize implements Optimizer. ctx is checked between work items; an
// individual configuration is never interrupted.
func (b *BruteForce) Optimize(ctx context.Context, p Problem) (*Solution, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return nil, invalidProblem(err)
	}
	if err := b.opts.Validate(); err != nil {
		return nil, fmt.Errorf("brute force options: %w", err)
	}

	boosters := rankEngines(p.Engines, true)
	uppers := rankEngines(p.Engines, false)
	grid := utils.LogSpace(b.opts.MinPropellant.Kg(), b.opts.MaxPropellant.Kg(), b.opts.PropellantSteps)
	counts := engineCounts(p.Constraints.MaxEnginesPerStage)

	lo, hi := p.stageRange()
	var items []workItem
	for n := lo; n <= hi; n++ {
		options := make([][]engine.Engine, n)
		options[0] = topK(boosters, b.opts.TopK)
		for i := 1; i < n; i++ {
			options[i] = topK(uppers, b.opts.TopK)
		}
		for _, assignment := range cartesian(options) {
			items = append(items, newWorkItem(assignment, grid, counts))
		}
	}

	b.log.Debug("brute force coarse search",
		"stages", fmt.Sprintf("%d..%d", lo, hi),
		"engines", len(p.Engines),
		"work_items", len(items),
		"grid_steps", len(grid))

	tracker := newProgressTracker(b.progress)

	coarse, iterations, err := b.evaluate(ctx, p, items, math.Inf(1), tracker, 0, coarsePhaseWeight)
	if err != nil {
		return nil, err
	}
	if coarse == nil {
		tracker.finish()
		return nil, infeasible("no feasible configuration found after %d iterations", iterations)
	}

	best := coarse
	if b.opts.RefineSteps > 0 {
		refineItems := b.refinementItems(coarse.rocket, boosters, uppers, counts)
		refined, refineIters, err := b.evaluate(ctx, p, refineItems, coarse.mass, tracker, coarsePhaseWeight, 100-coarsePhaseWeight)
		if err != nil {
			return nil, err
		}
		iterations += refineIters
		if refined != nil && refined.mass < best.mass {
			b.log.Debug("refinement improved solution",
				"coarse_mass_kg", coarse.mass,
				"refined_mass_kg", refined.mass)
			best = refined
		}
	}
	tracker.finish()

	return newSolution(best.rocket, p.TargetDV, iterations, time.Since(start), NameBruteForce), nil
}

// candidate is a feasible rocket and its liftoff mass in kg.
type candidate struct {
	rocket *stage.Rocket
	mass   float64
}

// evaluate runs items on the worker pool and folds the per-item bests into
// the lightest rocket. Ties go to the lower item index so the result does
// not depend on scheduling. Only rockets strictly lighter than bound are
// returned.
func (b *BruteForce) evaluate(ctx context.Context, p Problem, items []workItem, bound float64, tracker *progressTracker, base, weight float64) (*candidate, int64, error) {
	results := make([]itemResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.workers())

	var done atomic.Int64
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = items[i].search(p, bound)
			n := done.Add(1)
			tracker.report(base + weight*float64(n)/float64(len(items)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("brute force search interrupted: %w", err)
	}

	var best *candidate
	var iterations int64
	for _, r := range results {
		iterations += r.iterations
		if r.best == nil {
			continue
		}
		if best == nil || r.best.mass < best.mass {
			best = r.best
		}
	}
	return best, iterations, nil
}

// refinementItems narrows the grid around the coarse winner and retries its
// engines plus a few ranked alternatives per stage.
func (b *BruteForce) refinementItems(winner *stage.Rocket, boosters, uppers []engine.Engine, counts []int) []workItem {
	n := winner.StageCount()
	options := make([][]engine.Engine, n)
	grids := make([][]float64, n)
	for i := 0; i < n; i++ {
		s := winner.Stage(i)
		ranked := uppers
		if i == 0 {
			ranked = boosters
		}
		options[i] = withAlternatives(s.Engine(), ranked, b.opts.RefineAlternatives)

		prop := s.PropellantMass().Kg()
		grids[i] = utils.LinSpace(prop*(1-b.opts.RefineWindow), prop*(1+b.opts.RefineWindow), b.opts.RefineSteps)
	}

	var items []workItem
	for _, assignment := range cartesian(options) {
		items = append(items, workItem{engines: assignment, grids: grids, counts: counts})
	}
	return items
}

// workItem is one engine assignment for a fixed stage count. Engines,
// grids and counts are indexed bottom stage first.
type workItem struct {
	engines []engine.Engine
	grids   [][]float64
	counts  []int
}

func newWorkItem(engines []engine.Engine, grid []float64, counts []int) workItem {
	grids := make([][]float64, len(engines))
	for i := range grids {
		grids[i] = grid
	}
	return workItem{engines: engines, grids: grids, counts: counts}
}

type itemResult struct {
	best       *candidate
	iterations int64
}

// search enumerates the item's configurations top stage first so every
// stage is checked against the mass it really carries. Propellant grids are
// ascending: once a stage breaks its TWR minimum or the stack outweighs the
// best so far, larger loads cannot help and the loop stops early.
func (w workItem) search(p Problem, bound float64) itemResult {
	n := len(w.engines)
	c := p.Constraints
	eps := c.StructuralRatio.F()

	// caps[i] bounds the delta-v stages 0..i can add: the mass ratio of any
	// loaded stage stays below (1+ε)/ε. ve[i] is the best exhaust velocity
	// among stages 0..i.
	caps := make([]float64, n)
	ve := make([]float64, n)
	ratioCap := math.Log((1 + eps) / eps)
	for i, e := range w.engines {
		v := physics.ExhaustVelocity(e.IspVac).Mps()
		caps[i] = v * ratioCap
		ve[i] = v
		if i > 0 {
			caps[i] += caps[i-1]
			ve[i] = math.Max(ve[i], ve[i-1])
		}
	}

	s := &itemSearch{
		item:     w,
		target:   p.TargetDV.Mps(),
		payload:  p.Payload,
		c:        c,
		caps:     caps,
		ve:       ve,
		stack:    make([]stage.Stage, n),
		bestMass: bound,
	}
	s.descend(n-1, p.Payload, 0)
	return itemResult{best: s.best, iterations: s.iterations}
}

type itemSearch struct {
	item       workItem
	target     float64
	payload    units.Mass
	c          Constraints
	caps       []float64
	ve         []float64
	stack      []stage.Stage
	best       *candidate
	bestMass   float64
	iterations int64
}

func (s *itemSearch) descend(i int, above units.Mass, dv float64) {
	if i < 0 {
		if dv >= s.target && above.Kg() < s.bestMass {
			rocket, err := stage.NewRocket(s.stack, s.payload)
			if err != nil {
				return
			}
			s.best = &candidate{rocket: rocket, mass: above.Kg()}
			s.bestMass = above.Kg()
		}
		return
	}
	if dv+s.caps[i] < s.target {
		return
	}
	// every remaining stage multiplies the stack mass by at least its mass
	// ratio, so the finished rocket weighs at least above·exp(Δv_left/ve)
	if left := s.target - dv; left > 0 && above.Kg()*math.Exp(left/s.ve[i]) >= s.bestMass {
		return
	}

	e := s.item.engines[i]
	seaLevel := i == 0
	minTWR := s.c.MinStageTWR
	if seaLevel {
		minTWR = s.c.MinLiftoffTWR
	}

	for _, count := range s.item.counts {
		for _, prop := range s.item.grids[i] {
			s.iterations++
			st := stage.NewWithStructuralRatio(e, count, units.Kilograms(prop), s.c.StructuralRatio.F())
			total := above + st.WetMass()
			if total.Kg() >= s.bestMass {
				break
			}
			if stageTWR(st, above, seaLevel) < minTWR {
				break
			}
			s.stack[i] = st
			s.descend(i-1, total, dv+st.DeltaVWithPayload(above).Mps())
		}
	}
}

// rankEngines orders candidates for a stage position. Boosters must fire at
// sea level and are ranked by sea-level thrust per kilogram; upper stages
// are ranked by vacuum Isp.
func rankEngines(engines []engine.Engine, booster bool) []engine.Engine {
	var out []engine.Engine
	seen := make(map[string]bool)
	for _, e := range engines {
		key := strings.ToLower(e.Name)
		if seen[key] {
			continue
		}
		if booster && e.VacuumOnly() {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if booster {
			return out[i].SeaLevelThrustToMass() > out[j].SeaLevelThrustToMass()
		}
		return out[i].IspVac > out[j].IspVac
	})
	return out
}

func topK(engines []engine.Engine, k int) []engine.Engine {
	if len(engines) > k {
		return engines[:k]
	}
	return engines
}

// withAlternatives returns e followed by up to n other engines from ranked.
func withAlternatives(e engine.Engine, ranked []engine.Engine, n int) []engine.Engine {
	out := []engine.Engine{e}
	for _, r := range ranked {
		if len(out) > n {
			break
		}
		if strings.EqualFold(r.Name, e.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func engineCounts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// cartesian returns every combination picking one engine per position.
// Any empty position yields no combinations.
func cartesian(options [][]engine.Engine) [][]engine.Engine {
	combos := [][]engine.Engine{{}}
	for _, opts := range options {
		next := make([][]engine.Engine, 0, len(combos)*len(opts))
		for _, prefix := range combos {
			for _, e := range opts {
				combo := make([]engine.Engine, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, e))
			}
		}
		combos = next
	}
	return combos
}

// progressTracker forwards throttled progress to a ProgressFunc.
type progressTracker struct {
	fn        ProgressFunc
	sometimes *rate.Sometimes
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{
		fn:        fn,
		sometimes: &rate.Sometimes{First: 1, Interval: 100 * time.Millisecond},
	}
}

func (t *progressTracker) report(percent float64) {
	if t == nil || t.fn == nil {
		return
	}
	t.sometimes.Do(func() { t.fn(percent) })
}

func (t *progressTracker) finish() {
	if t == nil || t.fn == nil {
		return
	}
	t.fn(100)
}
