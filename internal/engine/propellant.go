package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Propellant is the oxidizer/fuel combination an engine burns.
type Propellant int

const (
	LoxRp1 Propellant = iota
	LoxLh2
	LoxCh4
	N2o4Udmh
	Solid
)

var propellantInfo = map[Propellant]struct {
	key     string
	name    string
	density float64
	aliases []string
}{
	LoxRp1:   {"loxrp1", "LOX/RP-1", 1030, []string{"kerosene", "rp1", "rp-1", "lox/rp1", "lox/rp-1"}},
	LoxLh2:   {"loxlh2", "LOX/LH2", 360, []string{"hydrogen", "lh2", "hydrolox", "lox/lh2"}},
	LoxCh4:   {"loxch4", "LOX/CH4", 830, []string{"methane", "ch4", "methalox", "lox/ch4"}},
	N2o4Udmh: {"n2o4udmh", "N2O4/UDMH", 1180, []string{"hypergolic", "udmh", "n2o4"}},
	Solid:    {"solid", "Solid", 1800, []string{"srb"}},
}

// Propellants returns every known propellant kind.
func Propellants() []Propellant {
	return []Propellant{LoxRp1, LoxLh2, LoxCh4, N2o4Udmh, Solid}
}

func (p Propellant) String() string {
	if info, ok := propellantInfo[p]; ok {
		return info.name
	}
	return fmt.Sprintf("Propellant(%d)", int(p))
}

// Density is the bulk density of the propellant mix in kg/m³.
func (p Propellant) Density() float64 {
	return propellantInfo[p].density
}

// Matches reports whether filter names this propellant, either by key,
// display name or a common alias ("methalox", "kerosene", ...).
func (p Propellant) Matches(filter string) bool {
	info, ok := propellantInfo[p]
	if !ok {
		return false
	}
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == info.key || f == strings.ToLower(info.name) {
		return true
	}
	for _, a := range info.aliases {
		if f == a {
			return true
		}
	}
	return false
}

// ParsePropellant resolves a name or alias to a Propellant.
func ParsePropellant(s string) (Propellant, error) {
	for _, p := range Propellants() {
		if p.Matches(s) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown propellant %q", s)
}

func (p Propellant) MarshalYAML() (any, error) {
	return p.String(), nil
}

func (p *Propellant) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParsePropellant(node.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Propellant) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Propellant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePropellant(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
