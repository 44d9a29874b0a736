package main

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/tsi/internal/physics"
	"github.com/GoSim-25-26J-441/tsi/pkg/units"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 2 {
		t.Errorf("expected exit 2 without a command, got %d", code)
	}
	if !strings.Contains(stderr, "Commands:") {
		t.Errorf("expected usage text, got %q", stderr)
	}

	code, _, stderr = runCLI(t, "launch")
	if code != 2 || !strings.Contains(stderr, `unknown command "launch"`) {
		t.Errorf("expected unknown command error, got %d %q", code, stderr)
	}

	if code, _, _ := runCLI(t, "help"); code != 0 {
		t.Errorf("expected help to exit 0, got %d", code)
	}
}

func TestEnginesTable(t *testing.T) {
	code, stdout, stderr := runCLI(t, "engines", "-name", "raptor")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, name := range []string{"Raptor-2", "Raptor-Vacuum"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("expected %s in table, got:\n%s", name, stdout)
		}
	}
	if strings.Contains(stdout, "Merlin-1D") {
		t.Errorf("filter not applied:\n%s", stdout)
	}
}

func TestEnginesJSON(t *testing.T) {
	code, stdout, stderr := runCLI(t, "engines", "-output", "json", "-propellant", "methane")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var engines []map[string]any
	if err := json.Unmarshal([]byte(stdout), &engines); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout)
	}
	if len(engines) == 0 {
		t.Fatal("expected methane engines")
	}
	for _, e := range engines {
		if e["propellant"] != "LOX/CH4" {
			t.Errorf("unexpected propellant %v", e["propellant"])
		}
	}
}

func TestEnginesNoMatch(t *testing.T) {
	code, _, stderr := runCLI(t, "engines", "-name", "ion")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "no engines found matching the filter") {
		t.Errorf("unexpected error %q", stderr)
	}

	code, _, stderr = runCLI(t, "engines", "-output", "yaml")
	if code != 1 || !strings.Contains(stderr, "-output must be table or json") {
		t.Errorf("expected output format error, got %d %q", code, stderr)
	}
}

func TestCalculateCompact(t *testing.T) {
	code, stdout, stderr := runCLI(t, "calculate", "-isp", "350", "-mass-ratio", "3", "-output", "compact")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	want := "dv: " + physics.DeltaV(units.Seconds(350), 3).String()
	if strings.TrimSpace(stdout) != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
}

func TestCalculateEngine(t *testing.T) {
	code, stdout, stderr := runCLI(t, "calculate", "-engine", "raptor-2", "-engine-count", "3", "-propellant-mass", "100000")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"Raptor-2 (x3)", "LOX/CH4", "Burn time", "TWR (vac)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestCalculateWetDryMass(t *testing.T) {
	code, stdout, stderr := runCLI(t, "calculate", "-isp", "311", "-wet-mass", "100000", "-dry-mass", "10000",
		"-thrust", "845000", "-output", "compact")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "burn: ") || !strings.Contains(stdout, "TWR: ") {
		t.Errorf("expected burn time and TWR, got %q", stdout)
	}
}

func TestCalculateCollectsErrors(t *testing.T) {
	code, _, stderr := runCLI(t, "calculate", "-isp", "-1", "-mass-ratio", "0.5", "-engine-count", "0", "-structural-ratio", "2")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	for _, want := range []string{
		"invalid arguments:",
		"-isp must be positive",
		"-mass-ratio must be greater than 1.0",
		"-engine-count must be at least 1",
		"-structural-ratio must be between 0 and 1",
	} {
		if !strings.Contains(stderr, want) {
			t.Errorf("expected %q in:\n%s", want, stderr)
		}
	}
}

func TestCalculateMissingInputs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no isp", []string{"-mass-ratio", "3"}, "either -engine or -isp is required"},
		{"no mass", []string{"-isp", "300"}, "one of -propellant-mass"},
		{"lonely wet mass", []string{"-isp", "300", "-wet-mass", "100"}, "must be given together"},
		{"unknown engine", []string{"-engine", "raptr-2", "-propellant-mass", "1000"}, "did you mean Raptor-2"},
		{"thrust without propellant", []string{"-isp", "300", "-mass-ratio", "3", "-thrust", "1000"}, "burn time requires propellant mass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, append([]string{"calculate"}, tt.args...)...)
			if code != 1 {
				t.Errorf("expected exit 1, got %d", code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("expected %q in %q", tt.want, stderr)
			}
		})
	}
}

func TestOptimizeJSON(t *testing.T) {
	code, stdout, stderr := runCLI(t, "optimize",
		"-payload", "5000", "-target-dv", "9000",
		"-engine", "raptor-2", "-stages", "2", "-optimizer", "analytical",
		"-losses", "-output", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}

	var doc struct {
		TotalMassKg float64 `json:"total_mass_kg"`
		MarginMps   float64 `json:"margin_mps"`
		Stages      []struct {
			Engine string `json:"engine"`
		} `json:"stages"`
		Losses *struct {
			TotalMps float64 `json:"total_mps"`
		} `json:"losses"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout)
	}
	if math.Abs(doc.TotalMassKg-167_136) > 20 {
		t.Errorf("expected total mass near 167136 kg, got %v", doc.TotalMassKg)
	}
	if math.Abs(doc.MarginMps-180) > 0.5 {
		t.Errorf("expected 180 m/s margin, got %v", doc.MarginMps)
	}
	if len(doc.Stages) != 2 || doc.Stages[0].Engine != "Raptor-2" {
		t.Errorf("unexpected stages %+v", doc.Stages)
	}
	if doc.Losses == nil || doc.Losses.TotalMps <= 0 {
		t.Errorf("expected loss estimate, got %+v", doc.Losses)
	}
}

func TestOptimizePretty(t *testing.T) {
	code, stdout, stderr := runCLI(t, "optimize",
		"-payload", "5000", "-target-dv", "9000",
		"-engine", "raptor-2", "-stages", "2", "-quiet")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "2-stage") || !strings.Contains(stdout, "Raptor-2 x") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
	if strings.Contains(stderr, "%") {
		t.Errorf("-quiet should suppress progress, got %q", stderr)
	}
}

func TestOptimizeMonteCarlo(t *testing.T) {
	code, stdout, stderr := runCLI(t, "optimize",
		"-payload", "5000", "-target-dv", "9000",
		"-engine", "raptor-2", "-stages", "2",
		"-monte-carlo", "25", "-uncertainty", "low", "-seed", "42", "-output", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var doc struct {
		MonteCarlo *struct {
			TotalRuns int   `json:"total_runs"`
			Seed      int64 `json:"seed"`
		} `json:"monte_carlo"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.MonteCarlo == nil || doc.MonteCarlo.TotalRuns != 25 || doc.MonteCarlo.Seed != 42 {
		t.Errorf("unexpected monte carlo summary %+v", doc.MonteCarlo)
	}
}

func TestOptimizeCollectsErrors(t *testing.T) {
	code, _, stderr := runCLI(t, "optimize", "-payload", "0", "-target-dv", "-1", "-min-twr", "0.5", "-optimizer", "genetic")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	for _, want := range []string{
		"-payload must be positive",
		"-target-dv must be positive",
		"-min-twr must be >= 1.0",
		`-optimizer must be auto, analytical or brute-force, got "genetic"`,
	} {
		if !strings.Contains(stderr, want) {
			t.Errorf("expected %q in:\n%s", want, stderr)
		}
	}
}

func TestOptimizeUnknownEngines(t *testing.T) {
	code, _, stderr := runCLI(t, "optimize", "-payload", "5000", "-target-dv", "9000", "-engine", "raptr-2,warp-drive")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	for _, want := range []string{`unknown engine "raptr-2" (did you mean Raptor-2`, `unknown engine "warp-drive"`, "tsi engines"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("expected %q in:\n%s", want, stderr)
		}
	}
}

func TestOptimizeInfeasible(t *testing.T) {
	code, _, stderr := runCLI(t, "optimize", "-payload", "100000", "-target-dv", "50000",
		"-engine", "raptor-2", "-stages", "2", "-optimizer", "analytical", "-quiet")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "error:") {
		t.Errorf("expected error output, got %q", stderr)
	}
}
