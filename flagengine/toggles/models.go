package toggles

import (
	"github.com/featurekit/featurekit-go/flagengine/constraints"
	"github.com/featurekit/featurekit-go/flagengine/strategies"
	"github.com/featurekit/featurekit-go/flagengine/variants"
)

// Toggle is a named feature flag.
type Toggle struct {
	Name           string                `json:"name"`
	Enabled        bool                  `json:"enabled"`
	Project        string                `json:"project,omitempty"`
	ImpressionData bool                  `json:"impressionData,omitempty"`
	Strategies     []strategies.Strategy `json:"strategies,omitempty"`
	Variants       []variants.Variant    `json:"variants,omitempty"`
	Dependencies   []Dependency          `json:"dependencies,omitempty"`
}

// Dependency requires another toggle to be in a given state.
type Dependency struct {
	Feature string `json:"feature"`
	// Enabled is the required state of the parent; nil means true.
	Enabled *bool `json:"enabled,omitempty"`
	// Variants, when set, requires the parent to serve one of these variants.
	Variants []string `json:"variants,omitempty"`
}

// RequiresEnabled reports the parent state the dependency expects.
func (d *Dependency) RequiresEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Segment is a reusable set of constraints referenced by strategies.
type Segment struct {
	ID          int                      `json:"id"`
	Name        string                   `json:"name,omitempty"`
	Constraints []constraints.Constraint `json:"constraints"`
}
