package tsid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/metrics"
	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
	"github.com/GoSim-25-26J-441/tsi/internal/report"
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

// Service turns OptimizeRequests into solution documents. It is shared by
// the HTTP handlers, the gRPC server and the run executor.
type Service struct {
	catalog    *engine.Catalog
	strategy   optimizer.Strategy
	bruteForce optimizer.BruteForceOptions
	mc         config.MonteCarloConfig
	metrics    *metrics.Collector
	log        *slog.Logger
}

// NewService builds a service from a loaded configuration.
func NewService(cat *engine.Catalog, cfg *config.Config) (*Service, error) {
	s, err := optimizer.StrategyFromConfig(cfg.Optimizer)
	if err != nil {
		return nil, err
	}
	return &Service{
		catalog:    cat,
		strategy:   s,
		bruteForce: optimizer.BruteForceOptionsFromConfig(cfg.Optimizer),
		mc:         cfg.MonteCarlo,
		metrics:    metrics.NewCollector(),
		log:        logger.Default,
	}, nil
}

// WithLogger overrides the package default logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.log = l
	return s
}

// Metrics returns the collector the daemon records into.
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// Catalog returns the engine catalog requests are resolved against.
func (s *Service) Catalog() *engine.Catalog {
	return s.catalog
}

// Validate checks req without solving it, so bad input can be rejected
// before a background run is created.
func (s *Service) Validate(req OptimizeRequest) error {
	p, err := req.Problem(s.catalog)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := optimizer.ParseStrategy(req.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.MonteCarlo != nil {
		if _, err := optimizer.UncertaintyPreset(req.MonteCarlo.Uncertainty); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if req.MonteCarlo.Iterations < 0 {
			return fmt.Errorf("%w: monte carlo iterations must be positive, got %d", ErrInvalidRequest, req.MonteCarlo.Iterations)
		}
	}
	return nil
}

// Optimize solves req. progress may be nil; it receives percentages of the
// whole job, Monte Carlo included.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest, progress optimizer.ProgressFunc) (*report.SolutionDocument, error) {
	p, err := req.Problem(s.catalog)
	if err != nil {
		return nil, err
	}
	strategy := s.strategy
	if req.Strategy != "" {
		if strategy, err = optimizer.ParseStrategy(req.Strategy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	var (
		sol *optimizer.Solution
		mc  *optimizer.MonteCarloResults
	)
	if req.MonteCarlo != nil {
		mc, err = s.runMonteCarlo(ctx, p, strategy, *req.MonteCarlo, progress)
		if err != nil {
			return nil, err
		}
		sol = mc.Nominal
	} else {
		solver := &optimizer.Solver{
			Strategy:   strategy,
			BruteForce: s.bruteForce,
			Progress:   progress,
			Logger:     s.log,
		}
		if sol, err = solver.Solve(ctx, p); err != nil {
			return nil, err
		}
	}

	doc := report.NewSolutionDocument(sol, mc)
	if req.Losses {
		doc = doc.WithLosses(sol.Rocket)
	}
	return &doc, nil
}

func (s *Service) runMonteCarlo(ctx context.Context, p optimizer.Problem, strategy optimizer.Strategy, req MonteCarloRequest, progress optimizer.ProgressFunc) (*optimizer.MonteCarloResults, error) {
	preset := req.Uncertainty
	if preset == "" {
		preset = s.mc.Uncertainty
	}
	u, err := optimizer.UncertaintyPreset(preset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	iterations := req.Iterations
	if iterations == 0 {
		iterations = s.mc.Iterations
	}
	if iterations < 0 {
		return nil, fmt.Errorf("%w: monte carlo iterations must be positive, got %d", ErrInvalidRequest, iterations)
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.mc.Seed
	}

	runner := optimizer.NewMonteCarlo(u, optimizer.MonteCarloOptions{
		Seed:       seed,
		Workers:    s.mc.Workers,
		Strategy:   strategy,
		BruteForce: s.bruteForce,
	}).WithProgressReporter(progress).WithLogger(s.log)
	return runner.Run(ctx, p, iterations)
}

// outcome labels a finished optimize call for metrics.
func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	return errorKind(err)
}

// errorKind names the class of a failed optimization for JSON clients.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, optimizer.ErrInvalidProblem):
		return "invalid"
	case errors.Is(err, optimizer.ErrInfeasible):
		return "infeasible"
	case errors.Is(err, optimizer.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}

func httpStatus(err error) int {
	switch errorKind(err) {
	case "invalid", "unsupported":
		return http.StatusBadRequest
	case "infeasible":
		return http.StatusUnprocessableEntity
	case "cancelled":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func grpcCode(err error) codes.Code {
	switch errorKind(err) {
	case "invalid":
		return codes.InvalidArgument
	case "infeasible":
		return codes.FailedPrecondition
	case "unsupported":
		return codes.Unimplemented
	case "cancelled":
		return codes.Canceled
	default:
		return codes.Internal
	}
}
