package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/stage"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

func newTestStage(e engine.Engine, count int, prop units.Mass) stage.Stage {
	return stage.NewWithStructuralRatio(e, count, prop, 0.08)
}

func newTestBruteForce(workers int) *BruteForce {
	opts := DefaultBruteForceOptions()
	opts.Workers = workers
	return NewBruteForce(opts).WithLogger(logger.Discard())
}

func TestBruteForceTwoEngines(t *testing.T) {
	p := leoProblem(t, "Raptor-2", "Raptor-Vacuum").WithStageCount(2)

	sol, err := newTestBruteForce(0).Optimize(context.Background(), p)
	require.NoError(t, err)

	r := sol.Rocket
	require.Equal(t, 2, r.StageCount())
	assert.True(t, sol.MeetsTarget())
	assert.GreaterOrEqual(t, r.TotalDeltaV().Mps(), 9000.0)
	assert.Equal(t, NameBruteForce, sol.Optimizer)
	assert.Positive(t, sol.Iterations)

	// the vacuum engine cannot lift off and has the best vacuum Isp
	assert.Equal(t, "Raptor-2", r.Stage(0).Engine().Name)
	assert.Equal(t, "Raptor-Vacuum", r.Stage(1).Engine().Name)

	assert.GreaterOrEqual(t, r.LiftoffTWR().F(), 1.2)
	assert.GreaterOrEqual(t, r.StageTWR(1).F(), 0.5)
	assert.NoError(t, r.ValidateTWR(p.Constraints.MinStageTWR, true))

	// a dedicated vacuum upper stage beats the single-engine closed form
	analytical, err := NewAnalytical().Optimize(context.Background(), leoProblem(t).WithStageCount(2))
	require.NoError(t, err)
	assert.Less(t, r.TotalMass().Kg(), analytical.Rocket.TotalMass().Kg())
}

func TestBruteForceFreeStageCount(t *testing.T) {
	p := leoProblem(t)

	sol, err := newTestBruteForce(0).Optimize(context.Background(), p)
	require.NoError(t, err)

	r := sol.Rocket
	assert.GreaterOrEqual(t, r.StageCount(), 1)
	assert.LessOrEqual(t, r.StageCount(), p.Constraints.MaxStages)
	assert.True(t, sol.MeetsTarget())
	assert.GreaterOrEqual(t, r.LiftoffTWR().F(), 1.2)
	for i := 1; i < r.StageCount(); i++ {
		assert.GreaterOrEqual(t, r.StageTWR(i).F(), 0.5, "stage %d", i)
	}
	for i := 0; i < r.StageCount(); i++ {
		assert.LessOrEqual(t, r.Stage(i).EngineCount(), p.Constraints.MaxEnginesPerStage)
	}
}

func TestBruteForceInfeasible(t *testing.T) {
	p := NewProblem(units.Kilograms(100_000), units.MetersPerSecond(50_000),
		leoProblem(t, "Raptor-2", "Raptor-Vacuum").Engines, DefaultConstraints())

	_, err := newTestBruteForce(0).Optimize(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInfeasible))
	assert.Contains(t, err.Error(), "no feasible configuration found after")
}

func TestBruteForceInvalidProblem(t *testing.T) {
	p := leoProblem(t)
	p.Engines = nil

	_, err := newTestBruteForce(0).Optimize(context.Background(), p)
	require.ErrorIs(t, err, ErrInvalidProblem)
}

func TestBruteForceDeterministicAcrossWorkers(t *testing.T) {
	p := leoProblem(t, "Merlin-1D", "Merlin-Vacuum", "Raptor-2")

	serial, err := newTestBruteForce(1).Optimize(context.Background(), p)
	require.NoError(t, err)
	parallel, err := newTestBruteForce(8).Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, serial.Rocket.TotalMass(), parallel.Rocket.TotalMass())
	assert.Equal(t, serial.Iterations, parallel.Iterations)
	require.Equal(t, serial.Rocket.StageCount(), parallel.Rocket.StageCount())
	for i := 0; i < serial.Rocket.StageCount(); i++ {
		a, b := serial.Rocket.Stage(i), parallel.Rocket.Stage(i)
		assert.Equal(t, a.Engine().Name, b.Engine().Name)
		assert.Equal(t, a.EngineCount(), b.EngineCount())
		assert.Equal(t, a.PropellantMass(), b.PropellantMass())
	}
}

func TestBruteForceRefinementNeverWorse(t *testing.T) {
	p := leoProblem(t, "Raptor-2", "Raptor-Vacuum").WithStageCount(2)

	coarseOpts := DefaultBruteForceOptions()
	coarseOpts.RefineSteps = NoRefinement
	coarse, err := NewBruteForce(coarseOpts).WithLogger(logger.Discard()).Optimize(context.Background(), p)
	require.NoError(t, err)

	refined, err := newTestBruteForce(0).Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.LessOrEqual(t, refined.Rocket.TotalMass().Kg(), coarse.Rocket.TotalMass().Kg())
	assert.Greater(t, refined.Iterations, coarse.Iterations)
}

func TestBruteForceProgress(t *testing.T) {
	var (
		mu      sync.Mutex
		reports []float64
	)
	bf := newTestBruteForce(1).WithProgressReporter(func(pct float64) {
		mu.Lock()
		reports = append(reports, pct)
		mu.Unlock()
	})

	_, err := bf.Optimize(context.Background(), leoProblem(t, "Raptor-2", "Raptor-Vacuum"))
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	assert.Equal(t, 100.0, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1])
	}
}

func TestBruteForceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBruteForce(2).Optimize(ctx, leoProblem(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBruteForceOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultBruteForceOptions().Validate())

	bad := DefaultBruteForceOptions()
	bad.PropellantSteps = 1
	assert.Error(t, bad.Validate())

	bad = DefaultBruteForceOptions()
	bad.MaxPropellant = bad.MinPropellant
	assert.Error(t, bad.Validate())

	bad = DefaultBruteForceOptions()
	bad.RefineWindow = 1
	assert.Error(t, bad.Validate())

	bad = DefaultBruteForceOptions()
	bad.RefineSteps = 1
	assert.Error(t, bad.Validate())

	off := DefaultBruteForceOptions()
	off.RefineSteps = NoRefinement
	assert.NoError(t, off.Validate())
}

func TestNewBruteForceFillsDefaults(t *testing.T) {
	filled := NewBruteForce(BruteForceOptions{}).Options()
	def := DefaultBruteForceOptions()
	assert.Equal(t, def, filled)

	off := NewBruteForce(BruteForceOptions{RefineSteps: NoRefinement}).Options()
	assert.Equal(t, NoRefinement, off.RefineSteps)
}

func TestBruteForceZeroOptionsRefine(t *testing.T) {
	p := leoProblem(t, "Raptor-2", "Raptor-Vacuum").WithStageCount(2)

	zero, err := NewBruteForce(BruteForceOptions{}).WithLogger(logger.Discard()).Optimize(context.Background(), p)
	require.NoError(t, err)
	defaults, err := newTestBruteForce(0).Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, defaults.Rocket.TotalMass(), zero.Rocket.TotalMass())
	assert.Equal(t, defaults.Iterations, zero.Iterations)

	sol, err := Solve(context.Background(), p, StrategyBruteForce, BruteForceOptions{})
	require.NoError(t, err)
	assert.Equal(t, defaults.Rocket.TotalMass(), sol.Rocket.TotalMass())
}

func TestRankEngines(t *testing.T) {
	engines := []engine.Engine{
		catalogEngine(t, "Raptor-Vacuum"),
		catalogEngine(t, "Merlin-1D"),
		catalogEngine(t, "RS-25"),
		catalogEngine(t, "Raptor-2"),
	}

	boosters := rankEngines(engines, true)
	for _, e := range boosters {
		assert.False(t, e.VacuumOnly(), e.Name)
	}
	require.Len(t, boosters, 3)
	for i := 1; i < len(boosters); i++ {
		assert.GreaterOrEqual(t, boosters[i-1].SeaLevelThrustToMass(), boosters[i].SeaLevelThrustToMass())
	}

	uppers := rankEngines(engines, false)
	require.Len(t, uppers, 4)
	assert.Equal(t, "RS-25", uppers[0].Name)
	assert.Equal(t, "Raptor-Vacuum", uppers[1].Name)
}

func TestCartesian(t *testing.T) {
	a := catalogEngine(t, "Raptor-2")
	b := catalogEngine(t, "Merlin-1D")

	combos := cartesian([][]engine.Engine{{a, b}, {a, b}, {a}})
	require.Len(t, combos, 4)
	for _, c := range combos {
		assert.Len(t, c, 3)
	}
	assert.Equal(t, "Raptor-2", combos[0][0].Name)
	assert.Equal(t, "Merlin-1D", combos[3][1].Name)

	assert.Empty(t, cartesian([][]engine.Engine{{a}, {}}))
}

func TestWithAlternatives(t *testing.T) {
	ranked := []engine.Engine{
		catalogEngine(t, "RS-25"),
		catalogEngine(t, "Raptor-Vacuum"),
		catalogEngine(t, "Raptor-2"),
	}
	got := withAlternatives(ranked[1], ranked, 2)
	require.Len(t, got, 3)
	assert.Equal(t, "Raptor-Vacuum", got[0].Name)
	assert.Equal(t, "RS-25", got[1].Name)
	assert.Equal(t, "Raptor-2", got[2].Name)

	assert.Len(t, withAlternatives(ranked[0], ranked, 0), 1)
}
