package strategies

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/featurekit/featurekit-go/flagengine/constraints"
	"github.com/featurekit/featurekit-go/flagengine/utils"
	"github.com/featurekit/featurekit-go/flagengine/variants"
)

// Strategy is one activation rule of a toggle.
type Strategy struct {
	Name        string                   `json:"name"`
	Constraints []constraints.Constraint `json:"constraints,omitempty"`
	Segments    []int                    `json:"segments,omitempty"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
	Variants    []variants.Variant       `json:"variants,omitempty"`

	// Type is derived from Name when the strategy is decoded.
	Type Type `json:"-"`
	// fixedStickiness is set for the legacy gradual rollout names.
	fixedStickiness string
}

// UnmarshalJSON derives the strategy Type and accepts non-string parameter values.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	type Alias Strategy
	aux := struct {
		Parameters map[string]utils.FlexibleString `json:"parameters"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Parameters = nil
	if len(aux.Parameters) > 0 {
		s.Parameters = make(map[string]string, len(aux.Parameters))
		for k, v := range aux.Parameters {
			s.Parameters[k] = string(v)
		}
	}
	s.Type, s.fixedStickiness = ParseType(s.Name)
	return nil
}

// New builds a strategy from its wire name, deriving the Type. Useful outside of JSON decoding.
func New(name string, parameters map[string]string, cs ...constraints.Constraint) Strategy {
	s := Strategy{Name: name, Parameters: parameters, Constraints: cs}
	s.Type, s.fixedStickiness = ParseType(name)
	return s
}

// Validate checks the mandatory fields of the strategy and everything it contains.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	for i := range s.Constraints {
		if err := s.Constraints[i].Validate(); err != nil {
			return fmt.Errorf("constraints[%d]: %w", i, err)
		}
	}
	for i := range s.Variants {
		if err := s.Variants[i].Validate(); err != nil {
			return fmt.Errorf("variants[%d]: %w", i, err)
		}
	}
	if err := variants.ValidateWeights(s.Variants); err != nil {
		return fmt.Errorf("variants: %w", err)
	}
	return nil
}

// Prepare pre-parses constraint operands.
func (s *Strategy) Prepare() {
	for i := range s.Constraints {
		s.Constraints[i].Prepare()
	}
}

func (s *Strategy) param(name string) string {
	return s.Parameters[name]
}
