// Package stage models propulsion stages and the rockets assembled from them.
package stage

import (
	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// Stage is one propulsion unit: N identical engines, propellant and tankage.
// A Stage is immutable once built.
type Stage struct {
	engine      engine.Engine
	engineCount int
	propellant  units.Mass
	structural  units.Mass
}

// New builds a stage with an explicit structural mass. engineCount below 1
// is raised to 1.
func New(e engine.Engine, engineCount int, propellant, structural units.Mass) Stage {
	if engineCount < 1 {
		engineCount = 1
	}
	return Stage{
		engine:      e,
		engineCount: engineCount,
		propellant:  propellant,
		structural:  structural,
	}
}

// NewWithStructuralRatio derives structural mass as ratio × propellant.
func NewWithStructuralRatio(e engine.Engine, engineCount int, propellant units.Mass, structuralRatio float64) Stage {
	return New(e, engineCount, propellant, propellant.Scale(structuralRatio))
}

// Engine returns the engine record used by every engine on the stage.
func (s Stage) Engine() engine.Engine { return s.engine }

// EngineCount returns the number of engines.
func (s Stage) EngineCount() int { return s.engineCount }

// PropellantMass returns the loaded propellant.
func (s Stage) PropellantMass() units.Mass { return s.propellant }

// StructuralMass returns tankage and structure, excluding engines.
func (s Stage) StructuralMass() units.Mass { return s.structural }

// EngineMass is the combined dry mass of all engines.
func (s Stage) EngineMass() units.Mass {
	return s.engine.DryMass.Scale(float64(s.engineCount))
}

// DryMass is structure plus engines.
func (s Stage) DryMass() units.Mass {
	return s.structural + s.EngineMass()
}

// WetMass is dry mass plus propellant.
func (s Stage) WetMass() units.Mass {
	return s.DryMass() + s.propellant
}

// MassRatio is wet / dry.
func (s Stage) MassRatio() units.Ratio {
	return s.WetMass().Div(s.DryMass())
}

// ThrustSL is the combined sea-level thrust.
func (s Stage) ThrustSL() units.Force {
	return s.engine.ThrustAt(engine.SeaLevel).Scale(float64(s.engineCount))
}

// ThrustVac is the combined vacuum thrust.
func (s Stage) ThrustVac() units.Force {
	return s.engine.ThrustAt(engine.Vacuum).Scale(float64(s.engineCount))
}

// Isp is the vacuum specific impulse used for delta-v.
func (s Stage) Isp() units.Isp {
	return s.engine.IspAt(engine.Vacuum)
}

// DeltaV is the stage's delta-v with nothing on top.
func (s Stage) DeltaV() units.Velocity {
	return physics.DeltaV(s.Isp(), s.MassRatio())
}

// DeltaVWithPayload is the delta-v while carrying extra mass, using the mass
// ratio (wet+extra)/(dry+extra). It strictly decreases as extra grows.
func (s Stage) DeltaVWithPayload(extra units.Mass) units.Velocity {
	ratio := (s.WetMass() + extra).Div(s.DryMass() + extra)
	return physics.DeltaV(s.Isp(), ratio)
}

// TWRVac is the vacuum thrust-to-weight of the stage alone.
func (s Stage) TWRVac() units.Ratio {
	return physics.TWR(s.ThrustVac(), s.WetMass(), physics.G0)
}

// TWRVacWithPayload is the vacuum thrust-to-weight while carrying extra mass.
func (s Stage) TWRVacWithPayload(extra units.Mass) units.Ratio {
	return physics.TWR(s.ThrustVac(), s.WetMass()+extra, physics.G0)
}

// TWRSL is the sea-level thrust-to-weight of the stage alone.
func (s Stage) TWRSL() units.Ratio {
	return physics.TWR(s.ThrustSL(), s.WetMass(), physics.G0)
}

// TWRSLWithPayload is the sea-level thrust-to-weight while carrying extra mass.
func (s Stage) TWRSLWithPayload(extra units.Mass) units.Ratio {
	return physics.TWR(s.ThrustSL(), s.WetMass()+extra, physics.G0)
}

// BurnTime is the time to burn all propellant at full vacuum thrust.
func (s Stage) BurnTime() units.Time {
	return physics.BurnTime(s.propellant, s.ThrustVac(), s.Isp())
}
