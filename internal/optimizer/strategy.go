package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

// Optimizer finds a rocket configuration for a Problem.
type Optimizer interface {
	Name() string
	Optimize(ctx context.Context, p Problem) (*Solution, error)
}

// Strategy selects which optimizer a Solver runs.
type Strategy int

const (
	// StrategyAuto picks Analytical when the problem allows it.
	StrategyAuto Strategy = iota
	StrategyAnalytical
	StrategyBruteForce
)

func (s Strategy) String() string {
	switch s {
	case StrategyAnalytical:
		return "analytical"
	case StrategyBruteForce:
		return "brute-force"
	default:
		return "auto"
	}
}

// ParseStrategy accepts "auto", "analytical" and "brute-force" (also
// "bruteforce" and "brute_force"). Empty means auto.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return StrategyAuto, nil
	case "analytical":
		return StrategyAnalytical, nil
	case "brute-force", "bruteforce", "brute_force":
		return StrategyBruteForce, nil
	default:
		return StrategyAuto, fmt.Errorf("unknown optimizer strategy %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SelectStrategy resolves StrategyAuto for p: two stages of a single
// engine type go to the closed-form solver, everything else to the search.
func SelectStrategy(p Problem) Strategy {
	if p.IsSingleEngine() && p.StageCount == 2 {
		return StrategyAnalytical
	}
	return StrategyBruteForce
}

// Solver runs the optimizer chosen by Strategy.
type Solver struct {
	Strategy   Strategy
	BruteForce BruteForceOptions
	Progress   ProgressFunc
	Logger     *slog.Logger
}

// NewSolver returns a solver with default brute force options.
func NewSolver(s Strategy) *Solver {
	return &Solver{Strategy: s, BruteForce: DefaultBruteForceOptions()}
}

// Optimizer returns the concrete optimizer the solver would use for p.
func (s *Solver) Optimizer(p Problem) Optimizer {
	strategy := s.Strategy
	if strategy == StrategyAuto {
		strategy = SelectStrategy(p)
	}
	if strategy == StrategyAnalytical {
		return NewAnalytical()
	}
	bf := NewBruteForce(s.BruteForce).WithProgressReporter(s.Progress)
	if s.Logger != nil {
		bf = bf.WithLogger(s.Logger)
	}
	return bf
}

// Solve runs the selected optimizer.
func (s *Solver) Solve(ctx context.Context, p Problem) (*Solution, error) {
	opt := s.Optimizer(p)
	log := s.Logger
	if log == nil {
		log = logger.Default
	}
	log.Debug("solving",
		"optimizer", opt.Name(),
		"payload_kg", p.Payload.Kg(),
		"target_mps", p.TargetDV.Mps(),
		"engines", len(p.Engines),
		"stage_count", p.StageCount)

	sol, err := opt.Optimize(ctx, p)
	if err != nil {
		return nil, err
	}
	if _, ok := opt.(*Analytical); ok && s.Progress != nil {
		s.Progress(100)
	}
	return sol, nil
}

// Solve dispatches p to the optimizer chosen by strategy.
func Solve(ctx context.Context, p Problem, strategy Strategy, opts BruteForceOptions) (*Solution, error) {
	s := &Solver{Strategy: strategy, BruteForce: opts}
	return s.Solve(ctx, p)
}
