package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

func TestUncertaintyPresets(t *testing.T) {
	tests := []struct {
		name string
		want Uncertainty
	}{
		{"none", Uncertainty{}},
		{"low", Uncertainty{0.5, 1, 3}},
		{"default", Uncertainty{1, 2, 5}},
		{"HIGH", Uncertainty{2, 3, 8}},
	}
	for _, tt := range tests {
		got, err := UncertaintyPreset(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := UncertaintyPreset("extreme")
	assert.Error(t, err)

	assert.True(t, NoUncertainty().IsZero())
	assert.False(t, DefaultUncertainty().IsZero())
}

func TestUncertaintyValidate(t *testing.T) {
	assert.NoError(t, DefaultUncertainty().Validate())
	assert.Error(t, Uncertainty{IspPercent: -1}.Validate())
	assert.Error(t, Uncertainty{ThrustPercent: -0.1}.Validate())
	assert.Error(t, Uncertainty{StructuralPercent: -5}.Validate())
}

func TestSamplerZeroIsNominal(t *testing.T) {
	rng := utils.NewRandSource(7)
	s := NewSampler(NoUncertainty(), rng)
	e := catalogEngine(t, "Raptor-2")

	assert.Equal(t, e, s.PerturbEngine(e))
	assert.Equal(t, units.Ratio(0.08), s.PerturbStructuralRatio(0.08))

	// no randomness was consumed
	assert.Equal(t, utils.NewRandSource(7).Float64(), rng.Float64())
}

func TestSamplerPerturbEngineKeepsIdentity(t *testing.T) {
	s := NewSampler(HighUncertainty(), utils.NewRandSource(42))
	e := catalogEngine(t, "Raptor-2")

	p := s.PerturbEngine(e)
	assert.Equal(t, e.Name, p.Name)
	assert.Equal(t, e.DryMass, p.DryMass)
	assert.Equal(t, e.Propellant, p.Propellant)
	assert.NotEqual(t, e.IspVac, p.IspVac)
	assert.NotEqual(t, e.ThrustVac, p.ThrustVac)

	// 2% sigma: 10 sigma away is not going to happen
	assert.InDelta(t, e.IspVac.S(), p.IspVac.S(), e.IspVac.S()*0.2)
	assert.InDelta(t, e.ThrustSL.N(), p.ThrustSL.N(), e.ThrustSL.N()*0.3)
}

func TestSamplerVacuumOnlyStaysVacuumOnly(t *testing.T) {
	s := NewSampler(HighUncertainty(), utils.NewRandSource(3))
	p := s.PerturbEngine(catalogEngine(t, "Raptor-Vacuum"))
	assert.True(t, p.VacuumOnly())
}

func TestSamplerStructuralClamp(t *testing.T) {
	s := NewSampler(Uncertainty{StructuralPercent: 500}, utils.NewRandSource(11))
	for range 200 {
		r := s.PerturbStructuralRatio(0.08).F()
		assert.GreaterOrEqual(t, r, 0.01)
		assert.LessOrEqual(t, r, 0.5)
	}
}

func TestSamplerDeterministic(t *testing.T) {
	e := catalogEngine(t, "Merlin-1D")
	a := NewSampler(DefaultUncertainty(), utils.NewRandSource(utils.DeriveSeed(99, 4)))
	b := NewSampler(DefaultUncertainty(), utils.NewRandSource(utils.DeriveSeed(99, 4)))
	assert.Equal(t, a.PerturbEngine(e), b.PerturbEngine(e))
	assert.Equal(t, a.PerturbStructuralRatio(0.08), b.PerturbStructuralRatio(0.08))
}

func TestSamplerPerturbProblem(t *testing.T) {
	p := leoProblem(t, "Raptor-2", "Raptor-Vacuum").WithStageCount(2)
	s := NewSampler(DefaultUncertainty(), utils.NewRandSource(5))

	q := s.PerturbProblem(p)
	assert.Equal(t, p.Payload, q.Payload)
	assert.Equal(t, p.TargetDV, q.TargetDV)
	assert.Equal(t, p.StageCount, q.StageCount)
	require.Len(t, q.Engines, 2)
	assert.NotEqual(t, p.Engines[0].IspVac, q.Engines[0].IspVac)
	assert.NotEqual(t, p.Constraints.StructuralRatio, q.Constraints.StructuralRatio)
	assert.Equal(t, p.Constraints.MaxStages, q.Constraints.MaxStages)

	// the input problem is untouched
	assert.Equal(t, catalogEngine(t, "Raptor-2"), p.Engines[0])
}
