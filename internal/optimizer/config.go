package optimizer

import (
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

// BruteForceOptionsFromConfig converts the optimizer section of a loaded
// configuration. The config layer has already filled defaults.
func BruteForceOptionsFromConfig(c config.OptimizerConfig) BruteForceOptions {
	return BruteForceOptions{
		PropellantSteps:    c.PropellantSteps,
		MinPropellant:      units.Kilograms(c.MinPropellantKg),
		MaxPropellant:      units.Kilograms(c.MaxPropellantKg),
		TopK:               c.TopK,
		RefineSteps:        c.RefineSteps,
		RefineWindow:       c.RefineWindow,
		RefineAlternatives: c.RefineAlternatives,
		Workers:            c.Workers,
	}
}

// StrategyFromConfig parses the configured default strategy.
func StrategyFromConfig(c config.OptimizerConfig) (Strategy, error) {
	return ParseStrategy(c.Strategy)
}

// MonteCarloOptionsFromConfig combines both sections into runner options.
func MonteCarloOptionsFromConfig(o config.OptimizerConfig, mc config.MonteCarloConfig) (MonteCarloOptions, error) {
	s, err := StrategyFromConfig(o)
	if err != nil {
		return MonteCarloOptions{}, err
	}
	return MonteCarloOptions{
		Seed:       mc.Seed,
		Workers:    mc.Workers,
		Strategy:   s,
		BruteForce: BruteForceOptionsFromConfig(o),
	}, nil
}
