// Package tsid serves the optimizer over HTTP and gRPC and runs long
// optimizations as background jobs.
package tsid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// ErrInvalidRequest marks a request that could not be turned into a problem.
var ErrInvalidRequest = errors.New("invalid request")

// OptimizeRequest is the JSON body shared by POST /v1/optimize, POST /v1/runs
// and the gRPC Optimize method.
type OptimizeRequest struct {
	PayloadKg       float64 `json:"payload_kg"`
	TargetDeltaVMps float64 `json:"target_delta_v_mps"`
	// Engines are catalog names. Empty means the whole catalog.
	Engines []string `json:"engines,omitempty"`
	// StageCount fixes the number of stages; zero lets the optimizer choose.
	StageCount  int                 `json:"stage_count,omitempty"`
	Constraints *ConstraintsRequest `json:"constraints,omitempty"`
	Strategy    string              `json:"strategy,omitempty"`
	MonteCarlo  *MonteCarloRequest  `json:"monte_carlo,omitempty"`
	Losses      bool                `json:"losses,omitempty"`
	// CallbackURL receives the finished run record. Only used by POST /v1/runs.
	CallbackURL string `json:"callback_url,omitempty"`
}

// ConstraintsRequest overrides individual constraints. Zero fields keep the
// default.
type ConstraintsRequest struct {
	MinLiftoffTWR      float64 `json:"min_liftoff_twr,omitempty"`
	MinStageTWR        float64 `json:"min_stage_twr,omitempty"`
	MaxStages          int     `json:"max_stages,omitempty"`
	StructuralRatio    float64 `json:"structural_ratio,omitempty"`
	MaxEnginesPerStage int     `json:"max_engines_per_stage,omitempty"`
}

// MonteCarloRequest asks for an uncertainty analysis of the solution.
type MonteCarloRequest struct {
	Iterations  int    `json:"iterations,omitempty"`
	Uncertainty string `json:"uncertainty,omitempty"`
	Seed        int64  `json:"seed,omitempty"`
}

func (c *ConstraintsRequest) apply(base optimizer.Constraints) optimizer.Constraints {
	if c == nil {
		return base
	}
	if c.MinLiftoffTWR != 0 {
		base.MinLiftoffTWR = units.Ratio(c.MinLiftoffTWR)
	}
	if c.MinStageTWR != 0 {
		base.MinStageTWR = units.Ratio(c.MinStageTWR)
	}
	if c.MaxStages != 0 {
		base.MaxStages = c.MaxStages
	}
	if c.StructuralRatio != 0 {
		base.StructuralRatio = units.Ratio(c.StructuralRatio)
	}
	if c.MaxEnginesPerStage != 0 {
		base.MaxEnginesPerStage = c.MaxEnginesPerStage
	}
	return base
}

// Problem resolves engine names against cat and builds the optimizer input.
// Every unknown engine is reported, each with suggestions when the catalog
// has close matches. Range checks are left to Problem.Validate.
func (r OptimizeRequest) Problem(cat *engine.Catalog) (optimizer.Problem, error) {
	engines, err := resolveEngines(cat, r.Engines)
	if err != nil {
		return optimizer.Problem{}, err
	}
	c := r.Constraints.apply(optimizer.DefaultConstraints())
	p := optimizer.NewProblem(units.Kilograms(r.PayloadKg), units.MetersPerSecond(r.TargetDeltaVMps), engines, c)
	return p.WithStageCount(r.StageCount), nil
}

func resolveEngines(cat *engine.Catalog, names []string) ([]engine.Engine, error) {
	if len(names) == 0 {
		return cat.List(), nil
	}
	var (
		out      []engine.Engine
		problems []string
	)
	for _, name := range names {
		e, ok := cat.Get(strings.TrimSpace(name))
		if ok {
			out = append(out, e)
			continue
		}
		msg := fmt.Sprintf("unknown engine %q", name)
		if s := cat.Suggest(name); len(s) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
		}
		problems = append(problems, msg)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return out, nil
}
