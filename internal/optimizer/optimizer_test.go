package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

var testCatalog = engine.MustLoadEmbedded()

func catalogEngine(t *testing.T, name string) engine.Engine {
	t.Helper()
	e, ok := testCatalog.Get(name)
	require.True(t, ok, "engine %s missing from catalog", name)
	return e
}

// leoProblem is 5 t to 9 km/s on Raptor-2 with default constraints.
func leoProblem(t *testing.T, engines ...string) Problem {
	t.Helper()
	if len(engines) == 0 {
		engines = []string{"Raptor-2"}
	}
	var list []engine.Engine
	for _, name := range engines {
		list = append(list, catalogEngine(t, name))
	}
	return NewProblem(units.Kilograms(5000), units.MetersPerSecond(9000), list, DefaultConstraints())
}

func TestProblemValidate(t *testing.T) {
	base := leoProblem(t)
	require.NoError(t, base.Validate())

	tests := []struct {
		name  string
		p     Problem
		field string
	}{
		{"zero payload", NewProblem(0, base.TargetDV, base.Engines, base.Constraints), "payload"},
		{"negative target", NewProblem(base.Payload, -1, base.Engines, base.Constraints), "target_delta_v"},
		{"no engines", NewProblem(base.Payload, base.TargetDV, nil, base.Constraints), "engines"},
		{"stage count over max", base.WithStageCount(4), "stage_count"},
		{"negative stage count", base.WithStageCount(-1), "stage_count"},
		{"bad constraints", base.WithConstraints(DefaultConstraints().WithMaxEngines(0)), "constraints"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			require.Error(t, err)
			var pe *ProblemError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestConstraintsValidate(t *testing.T) {
	c := DefaultConstraints()
	require.NoError(t, c.Validate())

	bad := []Constraints{
		{MinLiftoffTWR: 0.9, MinStageTWR: 0.5, MaxStages: 3, StructuralRatio: 0.08, MaxEnginesPerStage: 9},
		{MinLiftoffTWR: 1.2, MinStageTWR: 0, MaxStages: 3, StructuralRatio: 0.08, MaxEnginesPerStage: 9},
		{MinLiftoffTWR: 1.2, MinStageTWR: 0.5, MaxStages: 0, StructuralRatio: 0.08, MaxEnginesPerStage: 9},
		{MinLiftoffTWR: 1.2, MinStageTWR: 0.5, MaxStages: 3, StructuralRatio: 1, MaxEnginesPerStage: 9},
		{MinLiftoffTWR: 1.2, MinStageTWR: 0.5, MaxStages: 3, StructuralRatio: 0.08, MaxEnginesPerStage: 0},
	}
	for i, c := range bad {
		var ce *ConstraintError
		require.ErrorAs(t, c.Validate(), &ce, "case %d", i)
	}
}

func TestProblemConstraintErrorUnwraps(t *testing.T) {
	p := leoProblem(t).WithConstraints(Constraints{MinLiftoffTWR: 0.5, MinStageTWR: 0.5, MaxStages: 3, StructuralRatio: 0.08, MaxEnginesPerStage: 9})
	var ce *ConstraintError
	require.ErrorAs(t, p.Validate(), &ce)
	require.Equal(t, "min_liftoff_twr", ce.Field)
}

func TestProblemSingleEngine(t *testing.T) {
	p := leoProblem(t)
	e, ok := p.SingleEngine()
	require.True(t, ok)
	require.Equal(t, "Raptor-2", e.Name)

	two := leoProblem(t, "Raptor-2", "Raptor-Vacuum")
	require.False(t, two.IsSingleEngine())
	_, ok = two.SingleEngine()
	require.False(t, ok)
}

func TestNewProblemCopiesEngines(t *testing.T) {
	engines := []engine.Engine{catalogEngine(t, "Raptor-2")}
	p := NewProblem(1000, 5000, engines, DefaultConstraints())
	engines[0].Name = "changed"
	require.Equal(t, "Raptor-2", p.Engines[0].Name)
}

func TestStageRange(t *testing.T) {
	p := leoProblem(t)
	lo, hi := p.stageRange()
	require.Equal(t, 1, lo)
	require.Equal(t, 3, hi)

	lo, hi = p.WithStageCount(2).stageRange()
	require.Equal(t, 2, lo)
	require.Equal(t, 2, hi)
}
