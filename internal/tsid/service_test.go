package tsid

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(engine.MustLoadEmbedded(), config.Default())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc.WithLogger(logger.Discard())
}

// leoRequest is the two-stage Raptor-2 case the closed-form solver handles.
func leoRequest() OptimizeRequest {
	return OptimizeRequest{
		PayloadKg:       5000,
		TargetDeltaVMps: 9000,
		Engines:         []string{"Raptor-2"},
		StageCount:      2,
	}
}

func infeasibleRequest() OptimizeRequest {
	req := leoRequest()
	req.PayloadKg = 100_000
	req.TargetDeltaVMps = 50_000
	return req
}

func TestServiceOptimizeAnalytical(t *testing.T) {
	svc := newTestService(t)

	var last float64
	doc, err := svc.Optimize(context.Background(), leoRequest(), func(p float64) { last = p })
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}
	if doc.Metadata.Optimizer != optimizer.NameAnalytical {
		t.Errorf("expected analytical optimizer, got %s", doc.Metadata.Optimizer)
	}
	if len(doc.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(doc.Stages))
	}
	if math.Abs(doc.TotalMassKg-167_136) > 20 {
		t.Errorf("expected total mass ~167136 kg, got %.0f", doc.TotalMassKg)
	}
	if math.Abs(doc.MarginMps-180) > 0.5 {
		t.Errorf("expected margin ~180 m/s, got %.1f", doc.MarginMps)
	}
	if doc.MonteCarlo != nil || doc.Losses != nil {
		t.Errorf("expected no optional sections")
	}
	if last != 100 {
		t.Errorf("expected final progress 100, got %v", last)
	}
}

func TestServiceOptimizeExtras(t *testing.T) {
	svc := newTestService(t)

	req := leoRequest()
	req.Losses = true
	req.MonteCarlo = &MonteCarloRequest{Iterations: 20, Uncertainty: "low", Seed: 7}

	doc, err := svc.Optimize(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}
	if doc.MonteCarlo == nil {
		t.Fatal("expected monte carlo summary")
	}
	if doc.MonteCarlo.TotalRuns != 20 {
		t.Errorf("expected 20 runs, got %d", doc.MonteCarlo.TotalRuns)
	}
	if doc.MonteCarlo.Seed != 7 {
		t.Errorf("expected seed 7, got %d", doc.MonteCarlo.Seed)
	}
	if doc.Losses == nil || doc.Losses.TotalMps <= 0 {
		t.Errorf("expected positive loss estimate, got %+v", doc.Losses)
	}
}

func TestServiceOptimizeErrors(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		req  OptimizeRequest
		kind string
	}{
		{"infeasible", infeasibleRequest(), "infeasible"},
		{"negative payload", OptimizeRequest{PayloadKg: -1, TargetDeltaVMps: 9000, Engines: []string{"Raptor-2"}}, "invalid"},
		{"unknown engine", OptimizeRequest{PayloadKg: 5000, TargetDeltaVMps: 9000, Engines: []string{"Raptr-2"}}, "invalid"},
		{"bad strategy", OptimizeRequest{PayloadKg: 5000, TargetDeltaVMps: 9000, Strategy: "genetic"}, "invalid"},
		{"analytical with two engines", OptimizeRequest{
			PayloadKg:       5000,
			TargetDeltaVMps: 9000,
			Engines:         []string{"Raptor-2", "Raptor-Vacuum"},
			StageCount:      2,
			Strategy:        "analytical",
		}, "unsupported"},
		{"bad uncertainty", OptimizeRequest{
			PayloadKg:       5000,
			TargetDeltaVMps: 9000,
			Engines:         []string{"Raptor-2"},
			StageCount:      2,
			MonteCarlo:      &MonteCarloRequest{Uncertainty: "extreme"},
		}, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Optimize(context.Background(), tt.req, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errorKind(err); got != tt.kind {
				t.Errorf("expected kind %s, got %s (%v)", tt.kind, got, err)
			}
		})
	}
}

func TestServiceValidate(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Validate(leoRequest()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req := leoRequest()
	req.StageCount = 7
	err := svc.Validate(req)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage count") {
		t.Errorf("expected stage count message, got %v", err)
	}

	// infeasibility is only found by solving
	if err := svc.Validate(infeasibleRequest()); err != nil {
		t.Errorf("expected infeasible request to validate, got %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
		code   codes.Code
	}{
		{ErrInvalidRequest, "invalid", http.StatusBadRequest, codes.InvalidArgument},
		{&optimizer.OptimizeError{Kind: optimizer.ErrInvalidProblem}, "invalid", http.StatusBadRequest, codes.InvalidArgument},
		{&optimizer.OptimizeError{Kind: optimizer.ErrInfeasible}, "infeasible", http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{&optimizer.OptimizeError{Kind: optimizer.ErrUnsupported}, "unsupported", http.StatusBadRequest, codes.Unimplemented},
		{context.Canceled, "cancelled", http.StatusServiceUnavailable, codes.Canceled},
		{errors.New("boom"), "internal", http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.kind {
			t.Errorf("%v: expected kind %s, got %s", tt.err, tt.kind, got)
		}
		if got := httpStatus(tt.err); got != tt.status {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.status, got)
		}
		if got := grpcCode(tt.err); got != tt.code {
			t.Errorf("%v: expected code %v, got %v", tt.err, tt.code, got)
		}
	}
}
