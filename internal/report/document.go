package report

import (
	"encoding/json"
	"io"

	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/internal/stage"
)

// StageDocument is one stage of a SolutionDocument. Stage numbers start at 1
// for the booster.
type StageDocument struct {
	Stage        int     `json:"stage"`
	Engine       string  `json:"engine"`
	EngineCount  int     `json:"engine_count"`
	Propellant   string  `json:"propellant"`
	PropellantKg float64 `json:"propellant_kg"`
	DryMassKg    float64 `json:"dry_mass_kg"`
	WetMassKg    float64 `json:"wet_mass_kg"`
	DeltaVMps    float64 `json:"delta_v_mps"`
	BurnTimeS    float64 `json:"burn_time_s"`
	TWR          float64 `json:"twr"`
}

// Metadata describes how a solution was found.
type Metadata struct {
	Optimizer  string `json:"optimizer"`
	Iterations int64  `json:"iterations"`
	RuntimeMs  int64  `json:"runtime_ms"`
}

// LossDocument is the optional ascent loss estimate.
type LossDocument struct {
	GravityMps        float64 `json:"gravity_mps"`
	DragMps           float64 `json:"drag_mps"`
	SteeringMps       float64 `json:"steering_mps"`
	TotalMps          float64 `json:"total_mps"`
	LEORequirementMps float64 `json:"leo_requirement_mps"`
}

// SolutionDocument is the JSON form of an optimization result.
type SolutionDocument struct {
	TargetDeltaVMps float64                      `json:"target_delta_v_mps"`
	PayloadKg       float64                      `json:"payload_kg"`
	TotalMassKg     float64                      `json:"total_mass_kg"`
	TotalDeltaVMps  float64                      `json:"total_delta_v_mps"`
	PayloadFraction float64                      `json:"payload_fraction"`
	LiftoffTWR      float64                      `json:"liftoff_twr"`
	MarginMps       float64                      `json:"margin_mps"`
	MarginPercent   float64                      `json:"margin_percent"`
	Stages          []StageDocument              `json:"stages"`
	Metadata        Metadata                     `json:"metadata"`
	MonteCarlo      *optimizer.MonteCarloSummary `json:"monte_carlo,omitempty"`
	Losses          *LossDocument                `json:"losses,omitempty"`
}

// NewSolutionDocument shapes sol for JSON output. mc may be nil.
func NewSolutionDocument(sol *optimizer.Solution, mc *optimizer.MonteCarloResults) SolutionDocument {
	r := sol.Rocket
	doc := SolutionDocument{
		TargetDeltaVMps: sol.Target.Mps(),
		PayloadKg:       r.Payload().Kg(),
		TotalMassKg:     r.TotalMass().Kg(),
		TotalDeltaVMps:  r.TotalDeltaV().Mps(),
		PayloadFraction: r.PayloadFraction().F(),
		LiftoffTWR:      r.LiftoffTWR().F(),
		MarginMps:       sol.Margin.Mps(),
		MarginPercent:   sol.MarginPercent(),
		Metadata: Metadata{
			Optimizer:  sol.Optimizer,
			Iterations: sol.Iterations,
			RuntimeMs:  sol.Runtime.Milliseconds(),
		},
	}
	for i, s := range r.Stages() {
		doc.Stages = append(doc.Stages, StageDocument{
			Stage:        i + 1,
			Engine:       s.Engine().Name,
			EngineCount:  s.EngineCount(),
			Propellant:   s.Engine().Propellant.String(),
			PropellantKg: s.PropellantMass().Kg(),
			DryMassKg:    s.DryMass().Kg(),
			WetMassKg:    s.WetMass().Kg(),
			DeltaVMps:    r.StageDeltaV(i).Mps(),
			BurnTimeS:    s.BurnTime().S(),
			TWR:          r.StageTWR(i).F(),
		})
	}
	if mc != nil {
		summary := mc.Summary()
		doc.MonteCarlo = &summary
	}
	return doc
}

// WithLosses attaches an ascent loss estimate for r.
func (d SolutionDocument) WithLosses(r *stage.Rocket) SolutionDocument {
	burn, twr := r.TotalBurnTime(), r.LiftoffTWR()
	est := physics.EstimateLosses(burn, twr)
	d.Losses = &LossDocument{
		GravityMps:        est.Gravity.Mps(),
		DragMps:           est.Drag.Mps(),
		SteeringMps:       est.Steering.Mps(),
		TotalMps:          est.Total().Mps(),
		LEORequirementMps: physics.LEODeltaVRequirement(burn, twr).Mps(),
	}
	return d
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
