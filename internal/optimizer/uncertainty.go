package optimizer

import (
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// Structural ratios drawn by the sampler are clamped to this range.
const (
	minSampledStructuralRatio = 0.01
	maxSampledStructuralRatio = 0.5
)

// Uncertainty holds 1-sigma percentage uncertainties. Zero means the
// parameter is deterministic.
type Uncertainty struct {
	IspPercent        float64 `json:"isp_percent" yaml:"isp_percent"`
	ThrustPercent     float64 `json:"thrust_percent" yaml:"thrust_percent"`
	StructuralPercent float64 `json:"structural_percent" yaml:"structural_percent"`
}

// NoUncertainty returns the deterministic preset.
func NoUncertainty() Uncertainty { return Uncertainty{} }

// DefaultUncertainty is typical of flight-proven hardware: 1% Isp, 2%
// thrust, 5% structural.
func DefaultUncertainty() Uncertainty {
	return Uncertainty{IspPercent: 1, ThrustPercent: 2, StructuralPercent: 5}
}

// LowUncertainty suits mature, well-characterised engines.
func LowUncertainty() Uncertainty {
	return Uncertainty{IspPercent: 0.5, ThrustPercent: 1, StructuralPercent: 3}
}

// HighUncertainty suits engines still in development.
func HighUncertainty() Uncertainty {
	return Uncertainty{IspPercent: 2, ThrustPercent: 3, StructuralPercent: 8}
}

// UncertaintyPreset looks up a preset by name: none, low, default or high.
func UncertaintyPreset(name string) (Uncertainty, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "zero":
		return NoUncertainty(), nil
	case "low":
		return LowUncertainty(), nil
	case "", "default", "medium":
		return DefaultUncertainty(), nil
	case "high":
		return HighUncertainty(), nil
	default:
		return Uncertainty{}, fmt.Errorf("unknown uncertainty preset %q (want none, low, default or high)", name)
	}
}

// IsZero reports whether every parameter is deterministic.
func (u Uncertainty) IsZero() bool {
	return u.IspPercent == 0 && u.ThrustPercent == 0 && u.StructuralPercent == 0
}

// Validate rejects negative percentages.
func (u Uncertainty) Validate() error {
	if u.IspPercent < 0 {
		return fmt.Errorf("isp uncertainty cannot be negative, got %v%%", u.IspPercent)
	}
	if u.ThrustPercent < 0 {
		return fmt.Errorf("thrust uncertainty cannot be negative, got %v%%", u.ThrustPercent)
	}
	if u.StructuralPercent < 0 {
		return fmt.Errorf("structural uncertainty cannot be negative, got %v%%", u.StructuralPercent)
	}
	return nil
}

// Sampler draws perturbed parameters. Each value is multiplied by a factor
// drawn from N(1, pct/100). A zero percentage returns the nominal value
// without consuming randomness. Not safe for concurrent use.
type Sampler struct {
	u   Uncertainty
	rng *utils.RandSource
}

// NewSampler binds u to a random source.
func NewSampler(u Uncertainty, rng *utils.RandSource) *Sampler {
	return &Sampler{u: u, rng: rng}
}

// Uncertainty returns the sampler's configuration.
func (s *Sampler) Uncertainty() Uncertainty { return s.u }

func (s *Sampler) factor(pct float64) float64 {
	return s.rng.NormFloat64(1, pct/100)
}

// PerturbIsp samples an Isp around nominal.
func (s *Sampler) PerturbIsp(nominal units.Isp) units.Isp {
	if s.u.IspPercent == 0 {
		return nominal
	}
	return nominal.Scale(s.factor(s.u.IspPercent))
}

// PerturbThrust samples a thrust around nominal.
func (s *Sampler) PerturbThrust(nominal units.Force) units.Force {
	if s.u.ThrustPercent == 0 {
		return nominal
	}
	return nominal.Scale(s.factor(s.u.ThrustPercent))
}

// PerturbStructuralRatio samples a structural ratio, clamped to [0.01, 0.5].
func (s *Sampler) PerturbStructuralRatio(nominal units.Ratio) units.Ratio {
	if s.u.StructuralPercent == 0 {
		return nominal
	}
	v := nominal.F() * s.factor(s.u.StructuralPercent)
	return units.Ratio(utils.ClampFloat64(v, minSampledStructuralRatio, maxSampledStructuralRatio))
}

// PerturbEngine returns a copy of e with both thrusts and both Isps drawn
// independently. Name, dry mass and propellant are kept.
func (s *Sampler) PerturbEngine(e engine.Engine) engine.Engine {
	out := e
	out.ThrustSL = s.PerturbThrust(e.ThrustSL)
	out.ThrustVac = s.PerturbThrust(e.ThrustVac)
	out.IspSL = s.PerturbIsp(e.IspSL)
	out.IspVac = s.PerturbIsp(e.IspVac)
	return out
}

// PerturbProblem returns a copy of p with every engine and the structural
// ratio perturbed. The engine slice is not shared with p.
func (s *Sampler) PerturbProblem(p Problem) Problem {
	engines := make([]engine.Engine, len(p.Engines))
	for i, e := range p.Engines {
		engines[i] = s.PerturbEngine(e)
	}
	c := p.Constraints
	c.StructuralRatio = s.PerturbStructuralRatio(c.StructuralRatio)
	return p.WithEngines(engines).WithConstraints(c)
}
