package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/GoSim-25-26J-441/tsi/internal/stage"
)

const (
	diagramWidth   = 10
	maxStageHeight = 8
	minStageHeight = 2
	diagramIndent  = 4
)

// Diagram returns an ASCII side view of r, payload on top. Stage heights
// scale with propellant mass.
func Diagram(r *stage.Rocket) []string {
	if r.StageCount() == 0 {
		return []string{"(empty rocket)"}
	}

	maxProp := 0.0
	for _, s := range r.Stages() {
		maxProp = math.Max(maxProp, s.PropellantMass().Kg())
	}

	pad := strings.Repeat(" ", diagramIndent)
	center := func(s string) string {
		left := (diagramWidth + 2 - len(s)) / 2
		return pad + strings.Repeat(" ", left) + s
	}

	lines := []string{
		center("/\\"),
		center("/  \\"),
		center("/    \\") + "   <- payload " + compactMass(r.Payload().Kg()),
		center("/______\\"),
	}

	for i := r.StageCount() - 1; i >= 0; i-- {
		s := r.Stage(i)
		height := minStageHeight
		if maxProp > 0 {
			height = max(minStageHeight, int(math.Round(s.PropellantMass().Kg()/maxProp*maxStageHeight)))
		}
		label := fmt.Sprintf("S%d", i+1)
		for row := 0; row < height; row++ {
			body := ""
			if row == height/2 {
				body = label
			}
			line := pad + "|" + centerIn(body, diagramWidth) + "|"
			switch row {
			case 0:
				line += fmt.Sprintf("  <- stage %d: %s x%d", i+1, s.Engine().Name, s.EngineCount())
			case 1:
				line += "     " + compactMass(s.PropellantMass().Kg()) + " propellant"
			}
			lines = append(lines, line)
		}
		lines = append(lines, pad+"|"+strings.Repeat("_", diagramWidth)+"|")
	}

	lines = append(lines,
		center("\\    /"),
		center("\\  /"),
		center("\\/"),
	)
	return lines
}

// WriteDiagram prints Diagram(r) surrounded by blank lines.
func WriteDiagram(w io.Writer, r *stage.Rocket) {
	fmt.Fprintln(w)
	for _, line := range Diagram(r) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func centerIn(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

// compactMass renders masses as 950 kg, 24k kg or 1.2M kg.
func compactMass(kg float64) string {
	switch {
	case kg >= 1_000_000:
		return fmt.Sprintf("%.1fM kg", kg/1_000_000)
	case kg >= 1_000:
		return fmt.Sprintf("%.0fk kg", kg/1_000)
	default:
		return fmt.Sprintf("%.0f kg", kg)
	}
}
