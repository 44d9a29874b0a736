package tsid

import (
	"errors"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
)

func TestRequestProblem(t *testing.T) {
	cat := engine.MustLoadEmbedded()

	p, err := leoRequest().Problem(cat)
	if err != nil {
		t.Fatalf("Problem error: %v", err)
	}
	if p.Payload.Kg() != 5000 || p.TargetDV.Mps() != 9000 {
		t.Errorf("unexpected payload/target: %v %v", p.Payload, p.TargetDV)
	}
	if p.StageCount != 2 {
		t.Errorf("expected stage count 2, got %d", p.StageCount)
	}
	if len(p.Engines) != 1 || p.Engines[0].Name != "Raptor-2" {
		t.Errorf("unexpected engines %+v", p.Engines)
	}
	if p.Constraints != optimizer.DefaultConstraints() {
		t.Errorf("expected default constraints, got %+v", p.Constraints)
	}
}

func TestRequestProblemAllEngines(t *testing.T) {
	cat := engine.MustLoadEmbedded()

	p, err := OptimizeRequest{PayloadKg: 1000, TargetDeltaVMps: 8000}.Problem(cat)
	if err != nil {
		t.Fatalf("Problem error: %v", err)
	}
	if len(p.Engines) != cat.Len() {
		t.Errorf("expected %d engines, got %d", cat.Len(), len(p.Engines))
	}
	if p.StageCount != 0 {
		t.Errorf("expected free stage count, got %d", p.StageCount)
	}
}

func TestRequestProblemConstraintOverrides(t *testing.T) {
	req := leoRequest()
	req.Engines = []string{"raptor-2"}
	req.Constraints = &ConstraintsRequest{MinLiftoffTWR: 1.5, MaxStages: 2, StructuralRatio: 0.1}

	p, err := req.Problem(engine.MustLoadEmbedded())
	if err != nil {
		t.Fatalf("Problem error: %v", err)
	}
	c := p.Constraints
	if c.MinLiftoffTWR != 1.5 || c.MaxStages != 2 || c.StructuralRatio != 0.1 {
		t.Errorf("overrides not applied: %+v", c)
	}
	def := optimizer.DefaultConstraints()
	if c.MinStageTWR != def.MinStageTWR || c.MaxEnginesPerStage != def.MaxEnginesPerStage {
		t.Errorf("unset fields should keep defaults: %+v", c)
	}
}

func TestRequestUnknownEngines(t *testing.T) {
	req := leoRequest()
	req.Engines = []string{"Raptr-2", "Merlin-1D", "Warp-Drive"}

	_, err := req.Problem(engine.MustLoadEmbedded())
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, `unknown engine "Raptr-2" (did you mean Raptor-2`) {
		t.Errorf("expected suggestion for Raptr-2, got %s", msg)
	}
	if !strings.Contains(msg, `unknown engine "Warp-Drive"`) {
		t.Errorf("expected every unknown engine reported, got %s", msg)
	}
	if strings.Contains(msg, `"Merlin-1D"`) {
		t.Errorf("known engine reported as unknown: %s", msg)
	}
}
