package stage

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// ErrNoStages is returned when a rocket is assembled without stages.
var ErrNoStages = errors.New("rocket must have at least one stage")

// Rocket is a stack of stages (index 0 fires first) topped by a payload.
type Rocket struct {
	stages  []Stage
	payload units.Mass
}

// NewRocket assembles a rocket. The stage slice is copied.
func NewRocket(stages []Stage, payload units.Mass) (*Rocket, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	s := make([]Stage, len(stages))
	copy(s, stages)
	return &Rocket{stages: s, payload: payload}, nil
}

// Stages returns a copy of the stages, bottom first.
func (r *Rocket) Stages() []Stage {
	out := make([]Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// Stage returns stage i.
func (r *Rocket) Stage(i int) Stage { return r.stages[i] }

// StageCount returns the number of stages.
func (r *Rocket) StageCount() int { return len(r.stages) }

// Payload returns the payload mass.
func (r *Rocket) Payload() units.Mass { return r.payload }

// MassAboveStage is the payload plus every stage above i.
func (r *Rocket) MassAboveStage(i int) units.Mass {
	mass := r.payload
	for j := i + 1; j < len(r.stages); j++ {
		mass += r.stages[j].WetMass()
	}
	return mass
}

// StageDeltaV is the delta-v of stage i carrying everything above it.
func (r *Rocket) StageDeltaV(i int) units.Velocity {
	return r.stages[i].DeltaVWithPayload(r.MassAboveStage(i))
}

// TotalDeltaV sums every stage's delta-v.
func (r *Rocket) TotalDeltaV() units.Velocity {
	var total units.Velocity
	for i := range r.stages {
		total += r.StageDeltaV(i)
	}
	return total
}

// TotalMass is the liftoff mass.
func (r *Rocket) TotalMass() units.Mass {
	mass := r.payload
	for _, s := range r.stages {
		mass += s.WetMass()
	}
	return mass
}

// PayloadFraction is payload / liftoff mass.
func (r *Rocket) PayloadFraction() units.Ratio {
	return r.payload.Div(r.TotalMass())
}

// TotalBurnTime sums stage burn times.
func (r *Rocket) TotalBurnTime() units.Time {
	var total units.Time
	for _, s := range r.stages {
		total += s.BurnTime()
	}
	return total
}

// LiftoffTWR uses first-stage sea-level thrust against the full stack.
func (r *Rocket) LiftoffTWR() units.Ratio {
	return physics.TWR(r.stages[0].ThrustSL(), r.TotalMass(), physics.G0)
}

// StageTWR is the vacuum thrust-to-weight of stage i at ignition.
func (r *Rocket) StageTWR(i int) units.Ratio {
	return r.stages[i].TWRVacWithPayload(r.MassAboveStage(i))
}

// TWRError reports a thrust-to-weight violation.
type TWRError struct {
	// Stage is the offending stage index, or -1 for the liftoff check.
	Stage    int
	TWR      units.Ratio
	Required units.Ratio
}

func (e *TWRError) Error() string {
	if e.Stage < 0 {
		return fmt.Sprintf("insufficient liftoff TWR: %s < %s", e.TWR, e.Required)
	}
	return fmt.Sprintf("stage %d TWR too low: %s < %s", e.Stage, e.TWR, e.Required)
}

// Liftoff reports whether the violation is the liftoff check.
func (e *TWRError) Liftoff() bool { return e.Stage < 0 }

// ValidateTWR checks every stage against minTWR. When requireLiftoff is set
// the stack must also leave the pad (liftoff TWR >= 1) and stage 0 is judged
// on sea-level thrust; otherwise all stages use vacuum thrust.
func (r *Rocket) ValidateTWR(minTWR units.Ratio, requireLiftoff bool) error {
	if requireLiftoff {
		if liftoff := r.LiftoffTWR(); liftoff < 1.0 {
			return &TWRError{Stage: -1, TWR: liftoff, Required: 1.0}
		}
	}
	for i := range r.stages {
		twr := r.StageTWR(i)
		if i == 0 && requireLiftoff {
			twr = r.LiftoffTWR()
		}
		if twr < minTWR {
			return &TWRError{Stage: i, TWR: twr, Required: minTWR}
		}
	}
	return nil
}
