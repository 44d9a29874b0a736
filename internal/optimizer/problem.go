package optimizer

import (
	"fmt"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// Constraints bound the feasible design space.
type Constraints struct {
	MinLiftoffTWR      units.Ratio `json:"min_liftoff_twr" yaml:"min_liftoff_twr"`
	MinStageTWR        units.Ratio `json:"min_stage_twr" yaml:"min_stage_twr"`
	MaxStages          int         `json:"max_stages" yaml:"max_stages"`
	StructuralRatio    units.Ratio `json:"structural_ratio" yaml:"structural_ratio"`
	MaxEnginesPerStage int         `json:"max_engines_per_stage" yaml:"max_engines_per_stage"`
}

// DefaultConstraints returns the constraints used when none are specified.
func DefaultConstraints() Constraints {
	return Constraints{
		MinLiftoffTWR:      1.2,
		MinStageTWR:        0.5,
		MaxStages:          3,
		StructuralRatio:    0.08,
		MaxEnginesPerStage: 9,
	}
}

// WithMaxEngines returns a copy with a different per-stage engine limit.
func (c Constraints) WithMaxEngines(n int) Constraints {
	c.MaxEnginesPerStage = n
	return c
}

// Validate checks every bound independently of any problem.
func (c Constraints) Validate() error {
	if c.MinLiftoffTWR < 1.0 {
		return &ConstraintError{Field: "min_liftoff_twr", Msg: fmt.Sprintf("liftoff TWR must be >= 1.0, got %s", c.MinLiftoffTWR)}
	}
	if c.MinStageTWR <= 0 {
		return &ConstraintError{Field: "min_stage_twr", Msg: fmt.Sprintf("stage TWR must be > 0.0, got %s", c.MinStageTWR)}
	}
	if c.MaxStages < 1 {
		return &ConstraintError{Field: "max_stages", Msg: "must have at least 1 stage"}
	}
	if c.StructuralRatio <= 0 || c.StructuralRatio >= 1 {
		return &ConstraintError{Field: "structural_ratio", Msg: fmt.Sprintf("structural ratio must be between 0 and 1, got %s", c.StructuralRatio)}
	}
	if c.MaxEnginesPerStage < 1 {
		return &ConstraintError{Field: "max_engines_per_stage", Msg: fmt.Sprintf("max engines per stage must be >= 1, got %d", c.MaxEnginesPerStage)}
	}
	return nil
}

// Problem is an immutable optimization request. StageCount zero means the
// solver may choose.
type Problem struct {
	Payload     units.Mass
	TargetDV    units.Velocity
	Engines     []engine.Engine
	Constraints Constraints
	StageCount  int
}

// NewProblem builds a problem with a free stage count.
func NewProblem(payload units.Mass, target units.Velocity, engines []engine.Engine, c Constraints) Problem {
	e := make([]engine.Engine, len(engines))
	copy(e, engines)
	return Problem{
		Payload:     payload,
		TargetDV:    target,
		Engines:     e,
		Constraints: c,
	}
}

// WithStageCount returns a copy fixed to n stages.
func (p Problem) WithStageCount(n int) Problem {
	p.StageCount = n
	return p
}

// WithEngines returns a copy with a different candidate list.
func (p Problem) WithEngines(engines []engine.Engine) Problem {
	p.Engines = engines
	return p
}

// WithConstraints returns a copy with different constraints.
func (p Problem) WithConstraints(c Constraints) Problem {
	p.Constraints = c
	return p
}

// Validate returns a *ProblemError describing the first problem found.
func (p Problem) Validate() error {
	if p.Payload <= 0 {
		return &ProblemError{Field: "payload", Msg: fmt.Sprintf("payload mass must be positive, got %s", p.Payload)}
	}
	if p.TargetDV <= 0 {
		return &ProblemError{Field: "target_delta_v", Msg: fmt.Sprintf("target delta-v must be positive, got %s", p.TargetDV)}
	}
	if len(p.Engines) == 0 {
		return &ProblemError{Field: "engines", Msg: "at least one engine must be available"}
	}
	if p.StageCount != 0 && (p.StageCount < 1 || p.StageCount > p.Constraints.MaxStages) {
		return &ProblemError{Field: "stage_count", Msg: fmt.Sprintf("stage count %d invalid (max %d)", p.StageCount, p.Constraints.MaxStages)}
	}
	if err := p.Constraints.Validate(); err != nil {
		return &ProblemError{Field: "constraints", Msg: "constraint error", Err: err}
	}
	return nil
}

// IsSingleEngine reports whether exactly one engine type is available.
func (p Problem) IsSingleEngine() bool {
	return len(p.Engines) == 1
}

// SingleEngine returns the only candidate engine, if there is exactly one.
func (p Problem) SingleEngine() (engine.Engine, bool) {
	if !p.IsSingleEngine() {
		return engine.Engine{}, false
	}
	return p.Engines[0], true
}

// stageRange returns the inclusive stage-count range a search should cover.
func (p Problem) stageRange() (int, int) {
	if p.StageCount > 0 {
		return p.StageCount, p.StageCount
	}
	return 1, p.Constraints.MaxStages
}
