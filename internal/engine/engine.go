// Package engine holds rocket engine performance records and the catalog
// they are looked up from.
package engine

import (
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// Engine is an immutable engine performance record. Thrust values are per
// engine. Vacuum-only engines carry zero sea-level thrust or Isp.
type Engine struct {
	Name       string      `yaml:"name" json:"name"`
	ThrustSL   units.Force `yaml:"thrust_sl" json:"thrust_sl_n"`
	ThrustVac  units.Force `yaml:"thrust_vac" json:"thrust_vac_n"`
	IspSL      units.Isp   `yaml:"isp_sl" json:"isp_sl_s"`
	IspVac     units.Isp   `yaml:"isp_vac" json:"isp_vac_s"`
	DryMass    units.Mass  `yaml:"dry_mass" json:"dry_mass_kg"`
	Propellant Propellant  `yaml:"propellant" json:"propellant"`
}

// VacuumOnly reports whether the engine cannot fire at sea level.
func (e Engine) VacuumOnly() bool {
	return e.ThrustSL == 0 || e.IspSL == 0
}

// Ambient pressure ratios accepted by IspAt and ThrustAt.
const (
	Vacuum   = 0.0
	SeaLevel = 1.0
)

// IspAt interpolates specific impulse between vacuum (0) and sea level (1).
// The end points return the catalog values exactly.
func (e Engine) IspAt(pressureRatio float64) units.Isp {
	p := utils.ClampFloat64(pressureRatio, Vacuum, SeaLevel)
	switch p {
	case Vacuum:
		return e.IspVac
	case SeaLevel:
		return e.IspSL
	}
	return units.Isp(e.IspVac.S() + p*(e.IspSL.S()-e.IspVac.S()))
}

// ThrustAt interpolates thrust between vacuum (0) and sea level (1).
// The end points return the catalog values exactly.
func (e Engine) ThrustAt(pressureRatio float64) units.Force {
	p := utils.ClampFloat64(pressureRatio, Vacuum, SeaLevel)
	switch p {
	case Vacuum:
		return e.ThrustVac
	case SeaLevel:
		return e.ThrustSL
	}
	return units.Force(e.ThrustVac.N() + p*(e.ThrustSL.N()-e.ThrustVac.N()))
}

// SeaLevelThrustToMass is sea-level thrust per kilogram of engine, used to
// rank booster engines.
func (e Engine) SeaLevelThrustToMass() float64 {
	if e.DryMass <= 0 {
		return 0
	}
	return e.ThrustSL.N() / e.DryMass.Kg()
}
