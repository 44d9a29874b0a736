package physics

import (
	"math"

	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

const (
	// SteeringLoss is the flat allowance for trajectory shaping.
	SteeringLoss units.Velocity = 100

	// OrbitalVelocityLEO is the circular velocity at a ~200 km orbit.
	OrbitalVelocityLEO units.Velocity = 7800

	// LEOMargin is added on top of losses when estimating a LEO budget.
	LEOMargin units.Velocity = 150

	gravityLossFactor = 0.85
	dragLossBase      = 150.0
)

// LossEstimate is a breakdown of ascent losses.
type LossEstimate struct {
	Gravity  units.Velocity `json:"gravity_mps"`
	Drag     units.Velocity `json:"drag_mps"`
	Steering units.Velocity `json:"steering_mps"`
}

// Total returns the sum of all loss components.
func (l LossEstimate) Total() units.Velocity {
	return l.Gravity + l.Drag + l.Steering
}

func clampTWR(twr units.Ratio) float64 {
	return utils.ClampFloat64(twr.F(), 1, 10)
}

// GravityLoss approximates gravity drag from burn time and liftoff TWR.
// Higher TWR shortens the time spent fighting gravity.
func GravityLoss(burnTime units.Time, liftoffTWR units.Ratio) units.Velocity {
	return units.Velocity(G0 * burnTime.S() * gravityLossFactor / math.Sqrt(clampTWR(liftoffTWR)))
}

// DragLoss approximates aerodynamic losses from liftoff TWR alone.
func DragLoss(liftoffTWR units.Ratio) units.Velocity {
	return units.Velocity(dragLossBase * (1 + 0.5/clampTWR(liftoffTWR)))
}

// EstimateLosses returns gravity, drag and steering losses for an ascent.
func EstimateLosses(burnTime units.Time, liftoffTWR units.Ratio) LossEstimate {
	return LossEstimate{
		Gravity:  GravityLoss(burnTime, liftoffTWR),
		Drag:     DragLoss(liftoffTWR),
		Steering: SteeringLoss,
	}
}

// TotalLosses is shorthand for EstimateLosses(...).Total().
func TotalLosses(burnTime units.Time, liftoffTWR units.Ratio) units.Velocity {
	return EstimateLosses(burnTime, liftoffTWR).Total()
}

// LEODeltaVRequirement estimates the delta-v budget to reach low Earth orbit.
func LEODeltaVRequirement(burnTime units.Time, liftoffTWR units.Ratio) units.Velocity {
	return OrbitalVelocityLEO + TotalLosses(burnTime, liftoffTWR) + LEOMargin
}
