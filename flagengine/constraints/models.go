package constraints

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver/v4"

	"github.com/featurekit/featurekit-go/flagengine/utils"
)

// Constraint is a single predicate over one context field.
type Constraint struct {
	ContextName     string   `json:"contextName"`
	Operator        Operator `json:"operator"`
	Values          []string `json:"values,omitempty"`
	Value           string   `json:"value,omitempty"`
	Inverted        bool     `json:"inverted,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`

	compiled *compiled
}

// compiled holds the comparison operands parsed once at load time.
type compiled struct {
	values    []string
	number    float64
	numberOK  bool
	version   semver.Version
	versionOK bool
	date      time.Time
	dateOK    bool
}

// UnmarshalJSON accepts numbers and booleans wherever the document carries comparison values.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	type Alias Constraint
	aux := struct {
		Values []utils.FlexibleString `json:"values"`
		Value  *utils.FlexibleString  `json:"value"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Values = nil
	if len(aux.Values) > 0 {
		c.Values = make([]string, len(aux.Values))
		for i, v := range aux.Values {
			c.Values[i] = string(v)
		}
	}
	c.Value = ""
	if aux.Value != nil {
		c.Value = string(*aux.Value)
	}
	c.compiled = nil
	return nil
}

// Validate checks the mandatory fields and the operator tag.
func (c *Constraint) Validate() error {
	if c.ContextName == "" {
		return errors.New("contextName is required")
	}
	if c.Operator == "" {
		return errors.New("operator is required")
	}
	if !c.Operator.IsValid() {
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	return nil
}

// Prepare parses the comparison operands so evaluation does not repeat the work.
// Operands that fail to parse make the constraint evaluate false; they are not errors.
func (c *Constraint) Prepare() {
	c.compiled = compile(c)
}

// operand is the single comparison value used by EQ and the numeric, semver and date operators.
func (c *Constraint) operand() string {
	if c.Value != "" || len(c.Values) == 0 {
		return c.Value
	}
	return c.Values[0]
}

func (c *Constraint) prepared() *compiled {
	if c.compiled != nil {
		return c.compiled
	}
	return compile(c)
}

func compile(c *Constraint) *compiled {
	cc := &compiled{}
	switch c.Operator.kind() {
	case kindString:
		values := c.Values
		if c.Operator == Equal || c.Operator == NotEqual {
			values = []string{c.operand()}
		}
		cc.values = make([]string, len(values))
		for i, v := range values {
			if c.CaseInsensitive {
				v = strings.ToLower(v)
			}
			cc.values[i] = v
		}
	case kindNumeric:
		cc.number, cc.numberOK = parseNumber(c.operand())
	case kindSemver:
		v, err := semver.Parse(c.operand())
		cc.version, cc.versionOK = v, err == nil
	case kindDate:
		cc.date, cc.dateOK = utils.ParseTimestamp(c.operand())
	}
	return cc
}

func parseNumber(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
