// Package physics implements the rocket equation and the empirical loss
// estimates used when sizing launch vehicles.
package physics

import (
	"math"

	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// G0 is standard gravity in m/s².
const G0 = 9.80665

// DeltaV returns the ideal velocity change for a stage with the given
// specific impulse and mass ratio (wet/dry). A ratio of 1 yields zero.
func DeltaV(isp units.Isp, massRatio units.Ratio) units.Velocity {
	return ExhaustVelocity(isp).Scale(math.Log(massRatio.F()))
}

// RequiredMassRatio is the inverse of DeltaV.
func RequiredMassRatio(dv units.Velocity, isp units.Isp) units.Ratio {
	return units.Ratio(math.Exp(dv.Mps() / ExhaustVelocity(isp).Mps()))
}

// ExhaustVelocity returns isp × g0.
func ExhaustVelocity(isp units.Isp) units.Velocity {
	return units.Velocity(isp.S() * G0)
}

// TWR returns thrust / (mass × gravity).
func TWR(thrust units.Force, mass units.Mass, gravity float64) units.Ratio {
	return units.Ratio(thrust.N() / (mass.Kg() * gravity))
}

// MassFlowRate returns the propellant consumption in kg/s.
func MassFlowRate(thrust units.Force, isp units.Isp) float64 {
	return thrust.N() / ExhaustVelocity(isp).Mps()
}

// BurnTime returns the time needed to consume propellant at full thrust.
func BurnTime(propellant units.Mass, thrust units.Force, isp units.Isp) units.Time {
	return units.Time(propellant.Kg() / MassFlowRate(thrust, isp))
}
