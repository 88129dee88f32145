package variants

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/featurekit/featurekit-go/flagengine/utils"
)

// DisabledName is the name of the synthetic variant served when no variant applies.
const DisabledName = "disabled"

// MaxWeight is the largest weight a single variant may carry.
const MaxWeight = 1_000_000

// Payload is the opaque value attached to a variant.
type Payload struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Override forces a variant for contexts whose field value is listed.
type Override struct {
	ContextName string   `json:"contextName"`
	Values      []string `json:"values"`
}

// Variant is a weighted sub-assignment of an enabled toggle.
type Variant struct {
	Name       string     `json:"name"`
	Weight     int        `json:"weight"`
	Payload    *Payload   `json:"payload,omitempty"`
	Overrides  []Override `json:"overrides,omitempty"`
	Stickiness string     `json:"stickiness,omitempty"`
}

// UnmarshalJSON accepts a payload value that is not a JSON string by keeping its raw text.
func (p *Payload) UnmarshalJSON(data []byte) error {
	aux := struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Type = aux.Type
	p.Value = ""
	if len(aux.Value) == 0 || string(aux.Value) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.Value, &s); err == nil {
		p.Value = s
		return nil
	}
	p.Value = string(aux.Value)
	return nil
}

// UnmarshalJSON accepts numeric override values.
func (o *Override) UnmarshalJSON(data []byte) error {
	aux := struct {
		ContextName string                 `json:"contextName"`
		Values      []utils.FlexibleString `json:"values"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.ContextName = aux.ContextName
	o.Values = make([]string, len(aux.Values))
	for i, v := range aux.Values {
		o.Values[i] = string(v)
	}
	return nil
}

// Validate checks the mandatory fields of a variant.
func (v *Variant) Validate() error {
	if v.Name == "" {
		return errors.New("name is required")
	}
	if v.Weight < 0 {
		return fmt.Errorf("variant %q: weight must not be negative", v.Name)
	}
	if v.Weight > MaxWeight {
		return fmt.Errorf("variant %q: weight %d exceeds %d", v.Name, v.Weight, MaxWeight)
	}
	for i, o := range v.Overrides {
		if o.ContextName == "" {
			return fmt.Errorf("variant %q: overrides[%d]: contextName is required", v.Name, i)
		}
	}
	return nil
}

// ValidateWeights checks that the weights of a variant set sum to a value the weighted draw can
// address.
func ValidateWeights(vs []Variant) error {
	var total uint64
	for i := range vs {
		if vs[i].Weight > 0 {
			total += uint64(vs[i].Weight)
		}
	}
	if total > math.MaxUint32 {
		return fmt.Errorf("total variant weight %d exceeds %d", total, uint64(math.MaxUint32))
	}
	return nil
}
