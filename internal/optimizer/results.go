package optimizer

import (
	"math"
	"time"

	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// MonteCarloResults holds the raw samples of a Monte Carlo run. Samples are
// stored in sample-index order; failed samples contribute nothing to them.
// Statistics are computed on demand.
type MonteCarloResults struct {
	DeltaVSamples []float64
	MassSamples   []float64
	Successes     int
	Failures      int
	TotalRuns     int
	Target        units.Velocity
	Runtime       time.Duration
	Nominal       *Solution
	Seed          int64
	Uncertainty   Uncertainty
}

// SuccessProbability is the share of runs that reached the target.
func (r *MonteCarloResults) SuccessProbability() float64 {
	if r.TotalRuns == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.TotalRuns)
}

// DeltaVPercentile returns the nearest-rank percentile (0..100) of delta-v.
func (r *MonteCarloResults) DeltaVPercentile(p float64) float64 {
	return utils.Percentile(r.DeltaVSamples, p)
}

// MassPercentile returns the nearest-rank percentile (0..100) of total mass.
func (r *MonteCarloResults) MassPercentile(p float64) float64 {
	return utils.Percentile(r.MassSamples, p)
}

func (r *MonteCarloResults) MeanDeltaV() float64 { return utils.Mean(r.DeltaVSamples) }

func (r *MonteCarloResults) StdDeltaV() float64 { return utils.SampleStdDev(r.DeltaVSamples) }

func (r *MonteCarloResults) MeanMass() float64 { return utils.Mean(r.MassSamples) }

func (r *MonteCarloResults) StdMass() float64 { return utils.SampleStdDev(r.MassSamples) }

// RequiredMargin is the extra delta-v, beyond the target, the design would
// need to reach the target with the given confidence (0..1). It is never
// negative.
func (r *MonteCarloResults) RequiredMargin(confidence float64) float64 {
	low := r.DeltaVPercentile((1 - confidence) * 100)
	return math.Max(0, r.Target.Mps()-low)
}

// DistributionSummary condenses one sample vector.
type DistributionSummary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Percentile5  float64 `json:"percentile_5"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile95 float64 `json:"percentile_95"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

func summarize(samples []float64) DistributionSummary {
	lo, hi := utils.MinMax(samples)
	return DistributionSummary{
		Mean:         utils.Mean(samples),
		StdDev:       utils.SampleStdDev(samples),
		Percentile5:  utils.Percentile(samples, 5),
		Percentile50: utils.Percentile(samples, 50),
		Percentile95: utils.Percentile(samples, 95),
		Min:          lo,
		Max:          hi,
	}
}

// MonteCarloSummary is the serialisable digest of a run.
type MonteCarloSummary struct {
	SuccessProbability  float64             `json:"success_probability"`
	TotalRuns           int                 `json:"total_runs"`
	Successes           int                 `json:"successes"`
	Failures            int                 `json:"failures"`
	TargetDeltaV        float64             `json:"target_delta_v_mps"`
	RuntimeMs           int64               `json:"runtime_ms"`
	Seed                int64               `json:"seed"`
	Uncertainty         Uncertainty         `json:"uncertainty"`
	DeltaV              DistributionSummary `json:"delta_v"`
	Mass                DistributionSummary `json:"mass"`
	RequiredMargin95Mps float64             `json:"required_margin_95_mps"`
}

// Summary digests the samples.
func (r *MonteCarloResults) Summary() MonteCarloSummary {
	return MonteCarloSummary{
		SuccessProbability:  r.SuccessProbability(),
		TotalRuns:           r.TotalRuns,
		Successes:           r.Successes,
		Failures:            r.Failures,
		TargetDeltaV:        r.Target.Mps(),
		RuntimeMs:           r.Runtime.Milliseconds(),
		Seed:                r.Seed,
		Uncertainty:         r.Uncertainty,
		DeltaV:              summarize(r.DeltaVSamples),
		Mass:                summarize(r.MassSamples),
		RequiredMargin95Mps: r.RequiredMargin(0.95),
	}
}
