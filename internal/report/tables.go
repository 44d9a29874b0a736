// Package report renders optimizer results for terminals and JSON consumers.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/optimizer"
	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/internal/stage"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

const ruleWidth = 60

func rule(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
}

func kg(m units.Mass) string {
	return units.FormatThousands(m.Kg()) + " kg"
}

func mps(v units.Velocity) string {
	return units.FormatThousands(v.Mps()) + " m/s"
}

// EngineTable lists engines. verbose adds sea-level figures and the
// sea-level thrust to weight ratio.
func EngineTable(w io.Writer, engines []engine.Engine, verbose bool) {
	table := tablewriter.NewWriter(w)
	if verbose {
		table.Header("Engine", "Propellant", "Thrust SL", "Thrust Vac", "Isp SL", "Isp Vac", "Dry mass", "T/W SL")
	} else {
		table.Header("Engine", "Propellant", "Thrust Vac", "Isp Vac", "Dry mass")
	}

	for _, e := range engines {
		if verbose {
			twr := "-"
			if !e.VacuumOnly() {
				twr = fmt.Sprintf("%.0f", e.ThrustSL.N()/(e.DryMass.Kg()*physics.G0))
			}
			table.Append(
				e.Name,
				e.Propellant.String(),
				fmt.Sprintf("%.0f kN", e.ThrustSL.KN()),
				fmt.Sprintf("%.0f kN", e.ThrustVac.KN()),
				fmt.Sprintf("%.0f s", e.IspSL.S()),
				fmt.Sprintf("%.0f s", e.IspVac.S()),
				kg(e.DryMass),
				twr,
			)
			continue
		}
		table.Append(
			e.Name,
			e.Propellant.String(),
			fmt.Sprintf("%.0f kN", e.ThrustVac.KN()),
			fmt.Sprintf("%.0f s", e.IspVac.S()),
			kg(e.DryMass),
		)
	}

	table.Render()
	fmt.Fprintf(w, "  %d engines\n", len(engines))
}

// Solution prints a summary block and a stage table, upper stage first.
func Solution(w io.Writer, sol *optimizer.Solution) {
	r := sol.Rocket

	rule(w)
	fmt.Fprintln(w, "  tsi - staging optimization complete")
	rule(w)
	fmt.Fprintf(w, "  Target dv:   %-18s Payload:    %s\n", mps(sol.Target), kg(r.Payload()))
	fmt.Fprintf(w, "  Solution:    %-18s Total mass: %s\n", fmt.Sprintf("%d-stage", r.StageCount()), kg(r.TotalMass()))
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("Stage", "Engine", "Propellant", "Prop mass", "Dry mass", "dv", "Burn", "TWR")
	for i := r.StageCount() - 1; i >= 0; i-- {
		s := r.Stage(i)
		role := "upper"
		if i == 0 {
			role = "booster"
		}
		table.Append(
			fmt.Sprintf("%d (%s)", i+1, role),
			fmt.Sprintf("%s x%d", s.Engine().Name, s.EngineCount()),
			s.Engine().Propellant.String(),
			kg(s.PropellantMass()),
			kg(s.DryMass()),
			mps(r.StageDeltaV(i)),
			s.BurnTime().String(),
			fmt.Sprintf("%.2f", r.StageTWR(i).F()),
		)
	}
	table.Render()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total dv:          %s\n", mps(r.TotalDeltaV()))
	fmt.Fprintf(w, "  Liftoff TWR:       %.2f\n", r.LiftoffTWR().F())
	fmt.Fprintf(w, "  Payload fraction:  %.2f%%\n", sol.PayloadFractionPercent())
	fmt.Fprintf(w, "  Delta-v margin:    %+.0f m/s (%.1f%%)\n", sol.Margin.Mps(), sol.MarginPercent())
	fmt.Fprintf(w, "  Optimizer:         %s (%d iterations, %s)\n", sol.Optimizer, sol.Iterations, utils.FormatDuration(sol.Runtime))
	rule(w)
}

// MonteCarlo prints the distribution summary of a Monte Carlo run.
func MonteCarlo(w io.Writer, res *optimizer.MonteCarloResults) {
	s := res.Summary()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Monte Carlo: %d runs, seed %d, %s\n", s.TotalRuns, s.Seed, utils.FormatDuration(res.Runtime))
	fmt.Fprintf(w, "  Uncertainty: Isp %.1f%%, thrust %.1f%%, structural %.1f%%\n",
		s.Uncertainty.IspPercent, s.Uncertainty.ThrustPercent, s.Uncertainty.StructuralPercent)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Mean", "Std dev", "P5", "P50", "P95", "Min", "Max")
	appendDistribution(table, "dv (m/s)", s.DeltaV)
	appendDistribution(table, "Mass (kg)", s.Mass)
	table.Render()

	fmt.Fprintf(w, "  Success probability:  %.1f%% (%d/%d, %d failed)\n",
		s.SuccessProbability*100, s.Successes, s.TotalRuns, s.Failures)
	fmt.Fprintf(w, "  Margin for 95%%:       %s\n", mps(units.MetersPerSecond(s.RequiredMargin95Mps)))
}

func appendDistribution(table *tablewriter.Table, label string, d optimizer.DistributionSummary) {
	table.Append(
		label,
		units.FormatThousands(d.Mean),
		units.FormatThousands(d.StdDev),
		units.FormatThousands(d.Percentile5),
		units.FormatThousands(d.Percentile50),
		units.FormatThousands(d.Percentile95),
		units.FormatThousands(d.Min),
		units.FormatThousands(d.Max),
	)
}

// Losses prints an ascent loss breakdown and the resulting LEO budget.
func Losses(w io.Writer, r *stage.Rocket) {
	burn, twr := r.TotalBurnTime(), r.LiftoffTWR()
	est := physics.EstimateLosses(burn, twr)

	table := tablewriter.NewWriter(w)
	table.Header("Loss", "dv")
	table.Append("Gravity", mps(est.Gravity))
	table.Append("Drag", mps(est.Drag))
	table.Append("Steering", mps(est.Steering))
	table.Append("Total", mps(est.Total()))
	table.Render()

	budget := physics.LEODeltaVRequirement(burn, twr)
	fmt.Fprintf(w, "  LEO budget: %s (orbital %s + losses + %s margin)\n",
		mps(budget), mps(physics.OrbitalVelocityLEO), mps(physics.LEOMargin))
}

// KeyValues prints a two column table.
func KeyValues(w io.Writer, title string, rows [][2]string) {
	if title != "" {
		fmt.Fprintf(w, "  %s\n", title)
	}
	table := tablewriter.NewWriter(w)
	for _, row := range rows {
		table.Append(row[0], row[1])
	}
	table.Render()
}
