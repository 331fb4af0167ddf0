package allometry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/arborworks/tree-census/internal/config"
)

// DefaultSpecies is the reserved registry entry every species table must
// contain. Unrecognized species names resolve to it.
const DefaultSpecies = "Default"

// speciesJSON is the compiled-in coefficient table. Deployments can
// override it with an external file via the species_path config setting.
//
//go:embed species.json
var speciesJSON []byte

// PowerLaw is one allometric relation of the form y = A × dbh^B.
// Both coefficients must be positive; Eval(0) is 0 since 0^B = 0 for B > 0.
type PowerLaw struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Eval applies the power law to a trunk diameter.
func (p PowerLaw) Eval(dbh float64) float64 {
	return p.A * math.Pow(dbh, p.B)
}

// Coefficients holds the two power laws for one species: trunk diameter to
// height (meters) and trunk diameter to canopy width (meters).
type Coefficients struct {
	Height PowerLaw `json:"height"`
	Canopy PowerLaw `json:"canopy"`
}

// Estimate projects height and canopy width from a DBH in centimeters.
func (c Coefficients) Estimate(dbhCm float64) (heightM, canopyM float64) {
	return c.Height.Eval(dbhCm), c.Canopy.Eval(dbhCm)
}

// Registry is an immutable species coefficient table. Name resolution is
// case-insensitive and falls back to the Default entry, so Resolve always
// succeeds. Registries are safe for unsynchronized concurrent reads.
type Registry struct {
	entries map[string]Coefficients // canonical name -> coefficients
	index   map[string]string       // lowercased name -> canonical name
	names   []string                // canonical names, sorted
}

// LoadEmbedded builds the registry from the compiled-in table.
func LoadEmbedded() (*Registry, error) {
	return loadBytes(speciesJSON)
}

// LoadFile builds the registry from an external JSON table of the same
// shape as the embedded one.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read species table: %w", err)
	}
	return loadBytes(data)
}

func loadBytes(data []byte) (*Registry, error) {
	var table map[string]Coefficients
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: failed to parse species table: %v", config.ErrInvalidConfig, err)
	}
	return NewRegistry(table)
}

// NewRegistry validates a coefficient table and freezes it into a Registry.
//
// Validation failures wrap config.ErrInvalidConfig and are fatal at
// startup: an empty table, a blank or duplicate (case-insensitive) name,
// non-positive coefficients, or a missing Default entry.
func NewRegistry(table map[string]Coefficients) (*Registry, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: species table is empty", config.ErrInvalidConfig)
	}

	r := &Registry{
		entries: make(map[string]Coefficients, len(table)),
		index:   make(map[string]string, len(table)),
		names:   make([]string, 0, len(table)),
	}

	for name, c := range table {
		canonical := strings.TrimSpace(name)
		if canonical == "" {
			return nil, fmt.Errorf("%w: species table contains a blank name", config.ErrInvalidConfig)
		}
		key := strings.ToLower(canonical)
		if _, dup := r.index[key]; dup {
			return nil, fmt.Errorf("%w: species %q appears more than once (names are case-insensitive)", config.ErrInvalidConfig, canonical)
		}
		if err := validatePowerLaw(canonical, "height", c.Height); err != nil {
			return nil, err
		}
		if err := validatePowerLaw(canonical, "canopy", c.Canopy); err != nil {
			return nil, err
		}

		r.entries[canonical] = c
		r.index[key] = canonical
		r.names = append(r.names, canonical)
	}

	if _, ok := r.index[strings.ToLower(DefaultSpecies)]; !ok {
		return nil, fmt.Errorf("%w: species table is missing the %q entry", config.ErrInvalidConfig, DefaultSpecies)
	}

	sort.Strings(r.names)
	return r, nil
}

func validatePowerLaw(species, relation string, p PowerLaw) error {
	if p.A <= 0 || p.B <= 0 {
		return fmt.Errorf("%w: species %q %s coefficients must be positive, got a=%g b=%g", config.ErrInvalidConfig, species, relation, p.A, p.B)
	}
	return nil
}

// Resolve normalizes a requested species name to a table entry.
//
// Matching is case-insensitive with surrounding whitespace ignored. An
// unrecognized or empty name resolves to the Default entry; the returned
// name reports which entry was actually used so callers can record it.
func (r *Registry) Resolve(species string) (string, Coefficients) {
	key := strings.ToLower(strings.TrimSpace(species))
	if canonical, ok := r.index[key]; ok {
		return canonical, r.entries[canonical]
	}
	canonical := r.index[strings.ToLower(DefaultSpecies)]
	return canonical, r.entries[canonical]
}

// Names returns the canonical species names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Table returns a copy of the full coefficient table keyed by canonical
// name, for the species listing endpoint.
func (r *Registry) Table() map[string]Coefficients {
	out := make(map[string]Coefficients, len(r.entries))
	for name, c := range r.entries {
		out[name] = c
	}
	return out
}
