package optimizer

import (
	"time"

	"github.com/GoSim-25-26J-441/tsi/internal/stage"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// Solution is the result of one optimizer invocation.
type Solution struct {
	Rocket     *stage.Rocket
	Target     units.Velocity
	Margin     units.Velocity
	Iterations int64
	Runtime    time.Duration
	Optimizer  string
}

func newSolution(r *stage.Rocket, target units.Velocity, iterations int64, runtime time.Duration, name string) *Solution {
	return &Solution{
		Rocket:     r,
		Target:     target,
		Margin:     r.TotalDeltaV() - target,
		Iterations: iterations,
		Runtime:    runtime,
		Optimizer:  name,
	}
}

// MeetsTarget reports whether the achieved delta-v reaches the target.
func (s *Solution) MeetsTarget() bool {
	return s.Margin >= 0
}

// PayloadFractionPercent is the payload fraction as a percentage.
func (s *Solution) PayloadFractionPercent() float64 {
	return s.Rocket.PayloadFraction().F() * 100
}

// MarginPercent is the margin relative to the target, in percent.
func (s *Solution) MarginPercent() float64 {
	if s.Target == 0 {
		return 0
	}
	return s.Margin.Mps() / s.Target.Mps() * 100
}
