// Package variants selects the variant served for an enabled toggle.
package variants

import (
	"golang.org/x/exp/slices"

	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/utils"
)

// Select returns the variant for ctx. Override rules are checked first, in declared order; otherwise
// a weighted draw over the hash of toggleName.stickiness picks the variant whose cumulative weight
// bucket contains the target. It returns nil when no variant has a positive weight.
func Select(vs []Variant, toggleName, stickiness string, ctx *contexts.Context) *Variant {
	if v := selectOverride(vs, ctx); v != nil {
		return v
	}
	return selectWeighted(vs, toggleName, stickiness)
}

func selectOverride(vs []Variant, ctx *contexts.Context) *Variant {
	for i := range vs {
		for _, o := range vs[i].Overrides {
			value, ok := ctx.Value(o.ContextName)
			if ok && slices.Contains(o.Values, value) {
				return &vs[i]
			}
		}
	}
	return nil
}

func selectWeighted(vs []Variant, toggleName, stickiness string) *Variant {
	total := TotalWeight(vs)
	if total == 0 {
		return nil
	}
	target := utils.GetVariantTarget(toggleName, stickiness, total)

	var cumulative uint32
	for i := range vs {
		if vs[i].Weight <= 0 {
			continue
		}
		cumulative += uint32(vs[i].Weight)
		if target <= cumulative {
			return &vs[i]
		}
	}
	return nil
}

// TotalWeight sums the positive weights of vs.
func TotalWeight(vs []Variant) uint32 {
	var total uint32
	for i := range vs {
		if vs[i].Weight > 0 {
			total += uint32(vs[i].Weight)
		}
	}
	return total
}
