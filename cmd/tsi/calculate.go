package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/internal/report"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

type calculateArgs struct {
	engine          string
	isp             float64
	engineCount     int
	massRatio       float64
	wetMass         float64
	dryMass         float64
	propellantMass  float64
	thrust          float64
	structuralRatio float64
	output          string
	set             map[string]bool
}

func (a calculateArgs) validate() error {
	var errs argErrors
	if a.set["isp"] && a.isp <= 0 {
		errs.add("-isp must be positive")
	}
	if a.set["mass-ratio"] && a.massRatio <= 1 {
		errs.add("-mass-ratio must be greater than 1.0 (wet > dry)")
	}
	if a.set["wet-mass"] && a.wetMass <= 0 {
		errs.add("-wet-mass must be positive")
	}
	if a.set["dry-mass"] && a.dryMass <= 0 {
		errs.add("-dry-mass must be positive")
	}
	if a.set["wet-mass"] != a.set["dry-mass"] {
		errs.add("-wet-mass and -dry-mass must be given together")
	} else if a.set["wet-mass"] && a.wetMass <= a.dryMass {
		errs.add("-wet-mass must be greater than -dry-mass")
	}
	if a.set["mass-ratio"] && a.set["wet-mass"] {
		errs.add("-mass-ratio cannot be combined with -wet-mass/-dry-mass")
	}
	if a.set["propellant-mass"] && a.propellantMass <= 0 {
		errs.add("-propellant-mass must be positive")
	}
	if a.set["thrust"] && a.thrust <= 0 {
		errs.add("-thrust must be positive")
	}
	if a.structuralRatio < 0 || a.structuralRatio >= 1 {
		errs.add("-structural-ratio must be between 0 and 1")
	}
	if a.engineCount < 1 {
		errs.add("-engine-count must be at least 1")
	}
	if a.output != "pretty" && a.output != "compact" {
		errs.add("-output must be pretty or compact, got %q", a.output)
	}
	return errs.err()
}

// stageFigures is what calculate prints. Thrust, burn time and TWR are
// only known when thrust is.
type stageFigures struct {
	engineLabel string
	propellant  string
	propMass    units.Mass
	dryMass     units.Mass
	massRatio   units.Ratio
	deltaV      units.Velocity
	hasThrust   bool
	burnTime    units.Time
	twr         units.Ratio
	hasTWR      bool
}

func runCalculate(e *env, args []string) error {
	fs := newFlagSet("calculate", e.stderr)
	var a calculateArgs
	fs.StringVar(&a.engine, "engine", "", "engine name from the catalog (e.g. raptor-2)")
	fs.Float64Var(&a.isp, "isp", 0, "specific impulse in seconds (when -engine is not given)")
	fs.IntVar(&a.engineCount, "engine-count", 1, "number of engines")
	fs.Float64Var(&a.massRatio, "mass-ratio", 0, "wet mass / dry mass")
	fs.Float64Var(&a.wetMass, "wet-mass", 0, "wet mass in kg (with -dry-mass)")
	fs.Float64Var(&a.dryMass, "dry-mass", 0, "dry mass in kg (with -wet-mass)")
	fs.Float64Var(&a.propellantMass, "propellant-mass", 0, "propellant mass in kg")
	fs.Float64Var(&a.thrust, "thrust", 0, "thrust in newtons (overrides engine thrust)")
	fs.Float64Var(&a.structuralRatio, "structural-ratio", 0.1, "structural mass / propellant mass")
	fs.StringVar(&a.output, "output", "pretty", "output format: pretty or compact")

	set, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	a.set = set
	a.output = strings.ToLower(a.output)
	if err := a.validate(); err != nil {
		return err
	}

	fig, err := e.calculate(a)
	if err != nil {
		return err
	}
	if a.output == "compact" {
		writeCompact(e, fig)
		return nil
	}
	writePretty(e, fig)
	return nil
}

func (e *env) calculate(a calculateArgs) (stageFigures, error) {
	var (
		fig        stageFigures
		isp        units.Isp
		thrust     units.Force
		engineMass units.Mass
	)

	switch {
	case a.engine != "":
		eng, err := e.lookupEngine(a.engine)
		if err != nil {
			return fig, err
		}
		isp = eng.IspVac
		thrust = eng.ThrustVac.Scale(float64(a.engineCount))
		engineMass = eng.DryMass.Scale(float64(a.engineCount))
		fig.engineLabel = eng.Name
		if a.engineCount > 1 {
			fig.engineLabel = fmt.Sprintf("%s (x%d)", eng.Name, a.engineCount)
		}
		fig.propellant = eng.Propellant.String()
	case a.set["isp"]:
		isp = units.Seconds(a.isp)
	default:
		return fig, errors.New("either -engine or -isp is required")
	}
	if a.set["thrust"] {
		thrust = units.Newtons(a.thrust)
	}

	switch {
	case a.set["propellant-mass"]:
		fig.propMass = units.Kilograms(a.propellantMass)
		fig.dryMass = fig.propMass.Scale(a.structuralRatio) + engineMass
		if fig.dryMass <= 0 {
			return fig, errors.New("dry mass is zero: give -structural-ratio or an -engine")
		}
		fig.massRatio = (fig.dryMass + fig.propMass).Div(fig.dryMass)
	case a.set["mass-ratio"]:
		fig.massRatio = units.Ratio(a.massRatio)
	case a.set["wet-mass"]:
		fig.massRatio = units.Kilograms(a.wetMass).Div(units.Kilograms(a.dryMass))
		fig.propMass = units.Kilograms(a.wetMass - a.dryMass)
		fig.dryMass = units.Kilograms(a.dryMass)
	default:
		return fig, errors.New("one of -propellant-mass, -mass-ratio or -wet-mass/-dry-mass is required")
	}

	fig.deltaV = physics.DeltaV(isp, fig.massRatio)

	if thrust > 0 {
		if fig.propMass <= 0 {
			return fig, errors.New("burn time requires propellant mass: give -propellant-mass or -wet-mass/-dry-mass")
		}
		fig.hasThrust = true
		fig.burnTime = physics.BurnTime(fig.propMass, thrust, isp)
		if fig.dryMass > 0 {
			fig.hasTWR = true
			fig.twr = physics.TWR(thrust, fig.dryMass+fig.propMass, physics.G0)
		}
	}
	return fig, nil
}

func writeCompact(e *env, fig stageFigures) {
	parts := []string{"dv: " + fig.deltaV.String()}
	if fig.hasThrust {
		parts = append(parts, fmt.Sprintf("burn: %.0fs", fig.burnTime.S()))
	}
	if fig.hasTWR {
		parts = append(parts, fmt.Sprintf("TWR: %.2f", fig.twr.F()))
	}
	fmt.Fprintln(e.stdout, strings.Join(parts, " | "))
}

func writePretty(e *env, fig stageFigures) {
	var rows [][2]string
	if fig.engineLabel != "" {
		rows = append(rows, [2]string{"Engine", fig.engineLabel})
	}
	if fig.propMass > 0 {
		prop := units.FormatThousands(fig.propMass.Kg()) + " kg"
		if fig.propellant != "" {
			prop += " (" + fig.propellant + ")"
		}
		rows = append(rows, [2]string{"Propellant", prop})
		rows = append(rows, [2]string{"Dry mass", units.FormatThousands(fig.dryMass.Kg()) + " kg"})
	}
	rows = append(rows,
		[2]string{"Mass ratio", fig.massRatio.String()},
		[2]string{"Delta-v", fig.deltaV.String()},
	)
	if fig.hasThrust {
		rows = append(rows, [2]string{"Burn time", fig.burnTime.String()})
	}
	if fig.hasTWR {
		rows = append(rows, [2]string{"TWR (vac)", fmt.Sprintf("%.2f", fig.twr.F())})
	}
	report.KeyValues(e.stdout, "Single stage", rows)
}
