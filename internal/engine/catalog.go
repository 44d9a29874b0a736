package engine

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type catalogFile struct {
	Engines []Engine `yaml:"engines"`
}

// Catalog is a read-only list of engines with case-insensitive lookup.
type Catalog struct {
	engines []Engine
	byName  map[string]int
}

// LoadEmbedded parses the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	c, err := Parse(embeddedCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded engine catalog: %w", err)
	}
	return c, nil
}

// MustLoadEmbedded is LoadEmbedded for package-level initialisation and tests.
func MustLoadEmbedded() *Catalog {
	c, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse engine catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return NewCatalog(f.Engines)
}

// NewCatalog builds a catalog from engine records. Names must be unique
// ignoring case.
func NewCatalog(engines []Engine) (*Catalog, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("engine catalog is empty")
	}
	c := &Catalog{
		engines: make([]Engine, len(engines)),
		byName:  make(map[string]int, len(engines)),
	}
	copy(c.engines, engines)
	for i, e := range c.engines {
		if err := validateEngine(e); err != nil {
			return nil, err
		}
		key := strings.ToLower(e.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate engine name: %s", e.Name)
		}
		c.byName[key] = i
	}
	return c, nil
}

func validateEngine(e Engine) error {
	if e.Name == "" {
		return fmt.Errorf("engine name cannot be empty")
	}
	if e.ThrustVac <= 0 {
		return fmt.Errorf("engine %s: thrust_vac must be positive", e.Name)
	}
	if e.IspVac <= 0 {
		return fmt.Errorf("engine %s: isp_vac must be positive", e.Name)
	}
	if e.DryMass <= 0 {
		return fmt.Errorf("engine %s: dry_mass must be positive", e.Name)
	}
	if e.ThrustSL < 0 || e.IspSL < 0 {
		return fmt.Errorf("engine %s: sea-level values cannot be negative", e.Name)
	}
	return nil
}

// Get looks an engine up by name, ignoring case.
func (c *Catalog) Get(name string) (Engine, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Engine{}, false
	}
	return c.engines[i], true
}

// List returns a copy of every engine in catalog order.
func (c *Catalog) List() []Engine {
	out := make([]Engine, len(c.engines))
	copy(out, c.engines)
	return out
}

// Names returns engine names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.engines))
	for i, e := range c.engines {
		out[i] = e.Name
	}
	return out
}

// Len returns the number of engines.
func (c *Catalog) Len() int {
	return len(c.engines)
}

// Filter returns engines matching a propellant filter and a case-insensitive
// name substring. Empty filters match everything.
func (c *Catalog) Filter(propellant, name string) []Engine {
	name = strings.ToLower(name)
	var out []Engine
	for _, e := range c.engines {
		if propellant != "" && !e.Propellant.Matches(propellant) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(e.Name), name) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// maxSuggestionScore drops candidates that are more than three edits away.
const maxSuggestionScore = 6

// Suggest returns up to three engine names that look like query: prefix
// matches first, then substring matches, then close typos.
func (c *Catalog) Suggest(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))

	type scored struct {
		name  string
		score int
	}
	candidates := make([]scored, 0, len(c.engines))
	for _, e := range c.engines {
		n := strings.ToLower(e.Name)
		var score int
		switch {
		case strings.HasPrefix(n, q):
			score = 0
		case strings.Contains(n, q):
			score = 1
		case strings.HasPrefix(q, n):
			score = 2
		default:
			score = levenshtein.ComputeDistance(q, n) + 3
		}
		if score <= maxSuggestionScore {
			candidates = append(candidates, scored{e.Name, score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	out := make([]string, 0, 3)
	for _, s := range candidates {
		if len(out) == 3 {
			break
		}
		out = append(out, s.name)
	}
	return out
}
