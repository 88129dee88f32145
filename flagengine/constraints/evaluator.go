// Package constraints evaluates single constraint predicates against an evaluation context.
package constraints

import (
	"cmp"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"golang.org/x/exp/slices"

	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/utils"
)

// Evaluate reports whether the context satisfies the constraint. A missing field or a value that
// cannot be parsed for the operator yields false, which is then negated when the constraint is inverted.
func Evaluate(c *Constraint, ctx *contexts.Context) bool {
	return matches(c, ctx) != c.Inverted
}

// All reports whether every constraint holds, stopping at the first that does not.
func All(cs []Constraint, ctx *contexts.Context) bool {
	for i := range cs {
		if !Evaluate(&cs[i], ctx) {
			return false
		}
	}
	return true
}

func matches(c *Constraint, ctx *contexts.Context) bool {
	cc := c.prepared()

	if c.Operator.kind() == kindDate {
		return matchDate(c.Operator, c.ContextName, ctx, cc)
	}

	fieldValue, ok := ctx.Value(c.ContextName)
	if !ok {
		return false
	}

	switch c.Operator.kind() {
	case kindString:
		return matchString(c.Operator, fieldValue, cc.values, c.CaseInsensitive)
	case kindNumeric:
		if !cc.numberOK {
			return false
		}
		f, ok := parseNumber(fieldValue)
		if !ok {
			return false
		}
		return dispatchOrdered(c.Operator, f, cc.number)
	case kindSemver:
		if !cc.versionOK {
			return false
		}
		return matchSemver(c.Operator, fieldValue, cc.version)
	}
	return false
}

// dispatchOrdered implements the numeric comparison operators for ordered types.
func dispatchOrdered[T cmp.Ordered](operator Operator, v1, v2 T) bool {
	switch operator {
	case NumEqual:
		return v1 == v2
	case NumGreater:
		return v1 > v2
	case NumGreaterEq:
		return v1 >= v2
	case NumLess:
		return v1 < v2
	case NumLessEq:
		return v1 <= v2
	}
	return false
}

func matchString(operator Operator, fieldValue string, values []string, caseInsensitive bool) bool {
	if caseInsensitive {
		fieldValue = strings.ToLower(fieldValue)
	}
	switch operator {
	case Equal:
		return fieldValue == values[0]
	case NotEqual:
		return fieldValue != values[0]
	case In:
		return slices.Contains(values, fieldValue)
	case NotIn:
		return !slices.Contains(values, fieldValue)
	case StrContains:
		return slices.ContainsFunc(values, func(v string) bool { return strings.Contains(fieldValue, v) })
	case StrStarts:
		return slices.ContainsFunc(values, func(v string) bool { return strings.HasPrefix(fieldValue, v) })
	case StrEnds:
		return slices.ContainsFunc(values, func(v string) bool { return strings.HasSuffix(fieldValue, v) })
	}
	return false
}

// matchSemver compares using semantic-versioning precedence: numeric identifiers numerically and
// pre-releases below their release.
func matchSemver(operator Operator, fieldValue string, conditionVersion semver.Version) bool {
	fieldVersion, err := semver.Parse(fieldValue)
	if err != nil {
		return false
	}
	switch operator {
	case SemverEqual:
		return fieldVersion.EQ(conditionVersion)
	case SemverGreater:
		return fieldVersion.GT(conditionVersion)
	case SemverLess:
		return fieldVersion.LT(conditionVersion)
	}
	return false
}

func matchDate(operator Operator, field string, ctx *contexts.Context, cc *compiled) bool {
	if !cc.dateOK {
		return false
	}
	var fieldTime time.Time
	if field == contexts.FieldCurrentTime {
		fieldTime = ctx.Now()
	} else {
		raw, ok := ctx.Value(field)
		if !ok {
			return false
		}
		if fieldTime, ok = utils.ParseTimestamp(raw); !ok {
			return false
		}
	}
	switch operator {
	case DateAfter:
		return fieldTime.After(cc.date)
	case DateBefore:
		return fieldTime.Before(cc.date)
	}
	return false
}
