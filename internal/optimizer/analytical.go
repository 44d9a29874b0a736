package optimizer

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/internal/stage"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

const (
	// NameAnalytical is reported in Solution.Optimizer.
	NameAnalytical = "Analytical"

	// analyticalMargin inflates the target to absorb rounding.
	analyticalMargin = 1.02
	// analyticalTolerance is how far below target a result may land, in m/s.
	analyticalTolerance = 1.0
)

// Analytical sizes a two-stage, single-engine-type rocket in closed form by
// splitting the delta-v evenly between the stages.
type Analytical struct{}

// NewAnalytical returns the closed-form solver.
func NewAnalytical() *Analytical {
	return &Analytical{}
}

// Name implements Optimizer.
func (a *Analytical) Name() string { return NameAnalytical }

// Optimize implements Optimizer. The context is not consulted; the solve is
// a handful of arithmetic steps.
func (a *Analytical) Optimize(_ context.Context, p Problem) (*Solution, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return nil, invalidProblem(err)
	}

	e, ok := p.SingleEngine()
	if !ok {
		return nil, unsupported("analytical optimizer requires a single engine type, got %d", len(p.Engines))
	}

	stageCount := p.StageCount
	if stageCount == 0 {
		stageCount = 2
	}
	if stageCount != 2 {
		return nil, unsupported("analytical optimizer only supports 2 stages, got %d", stageCount)
	}

	c := p.Constraints
	dvPerStage := p.TargetDV.Scale(analyticalMargin / 2)

	// the upper stage fixes the mass the booster has to lift
	upper, err := sizeStage(e, dvPerStage, c, p.Payload, c.MinStageTWR, false)
	if err != nil {
		return nil, err
	}
	lower, err := sizeStage(e, dvPerStage, c, upper.WetMass()+p.Payload, c.MinLiftoffTWR, true)
	if err != nil {
		return nil, err
	}

	rocket, err := stage.NewRocket([]stage.Stage{lower, upper}, p.Payload)
	if err != nil {
		return nil, err
	}
	if err := rocket.ValidateTWR(c.MinStageTWR, true); err != nil {
		return nil, &OptimizeError{Kind: ErrInfeasible, Reason: err.Error(), Err: err}
	}

	sol := newSolution(rocket, p.TargetDV, 1, time.Since(start), NameAnalytical)
	if sol.Margin.Mps() < -analyticalTolerance {
		return nil, infeasible("analytical solution misses target by %.1f m/s", -sol.Margin.Mps())
	}
	return sol, nil
}

// sizeStage alternates between solving propellant for an engine count and
// recomputing the engine count the TWR constraint needs, until the count
// stops changing.
func sizeStage(e engine.Engine, dv units.Velocity, c Constraints, above units.Mass, minTWR units.Ratio, seaLevel bool) (stage.Stage, error) {
	count := 1
	for range c.MaxEnginesPerStage + 1 {
		propellant, err := stagePropellant(dv, e, count, c.StructuralRatio, above)
		if err != nil {
			return stage.Stage{}, err
		}
		needed, err := engineCountFor(e, propellant, c, above, minTWR, seaLevel)
		if err != nil {
			return stage.Stage{}, err
		}
		if needed == count {
			return stage.NewWithStructuralRatio(e, count, propellant, c.StructuralRatio.F()), nil
		}
		count = needed
	}
	return stage.Stage{}, infeasible("engine count for %s did not converge within %d engines", e.Name, c.MaxEnginesPerStage)
}

// stagePropellant solves (wet+above)/(dry+above) = R for propellant:
//
//	P = F(R-1) / (1 + ε(1-R)),  F = engine mass + mass above
func stagePropellant(dv units.Velocity, e engine.Engine, count int, structuralRatio units.Ratio, above units.Mass) (units.Mass, error) {
	r := physics.RequiredMassRatio(dv, e.IspVac).F()
	if r < 1.0 {
		return 0, infeasible("required mass ratio %.3f < 1.0 (impossible)", r)
	}

	eps := structuralRatio.F()
	fixed := e.DryMass.Kg()*float64(count) + above.Kg()
	denominator := 1 + eps*(1-r)
	if denominator <= 0 {
		return 0, infeasible("structural ratio %.3f too high for required mass ratio %.2f", eps, r)
	}

	propellant := fixed * (r - 1) / denominator
	if propellant <= 0 {
		return 0, infeasible("calculated propellant mass is non-positive")
	}
	return units.Kilograms(propellant), nil
}

// engineCountFor returns the smallest engine count whose TWR, with the given
// propellant load and mass above, reaches minTWR.
func engineCountFor(e engine.Engine, propellant units.Mass, c Constraints, above units.Mass, minTWR units.Ratio, seaLevel bool) (int, error) {
	for count := 1; count <= c.MaxEnginesPerStage; count++ {
		s := stage.NewWithStructuralRatio(e, count, propellant, c.StructuralRatio.F())
		if stageTWR(s, above, seaLevel) >= minTWR {
			return count, nil
		}
	}
	return 0, infeasible("cannot achieve TWR %s with up to %d %s engines", minTWR, c.MaxEnginesPerStage, e.Name)
}

// stageTWR is the ignition TWR of s carrying above, on sea-level or vacuum thrust.
func stageTWR(s stage.Stage, above units.Mass, seaLevel bool) units.Ratio {
	if seaLevel {
		return s.TWRSLWithPayload(above)
	}
	return s.TWRVacWithPayload(above)
}
