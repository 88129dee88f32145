// Package strategies evaluates activation strategies: their constraints, referenced segments and
// type-specific rollout logic.
package strategies

import (
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/featurekit/featurekit-go/flagengine/constraints"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/utils"
)

// SegmentLookup resolves segment ids to their constraints.
type SegmentLookup interface {
	SegmentConstraints(id int) ([]constraints.Constraint, bool)
}

// Options carries the per-engine collaborators a strategy may need.
type Options struct {
	Segments SegmentLookup
	// Hostname is used by applicationHostname when the context has no hostname property.
	Hostname string
	// Random supplies the stickiness value when no context field can be used. Callers evaluating
	// several strategies for one toggle pass a memoised function so the value is generated once.
	Random func() string
	Logger *slog.Logger
}

// Result is the outcome of one strategy.
type Result struct {
	Enabled bool
	// StickinessValue is the value hashed by rollout strategies. Empty for other types.
	StickinessValue string
}

// Evaluate runs the strategy for ctx. Constraints and segments are checked first; the type-specific
// logic only runs when they all pass.
func Evaluate(s *Strategy, ctx *contexts.Context, toggleName string, opts *Options) Result {
	if opts == nil {
		opts = &Options{}
	}
	if !constraints.All(s.Constraints, ctx) {
		return Result{}
	}
	if !segmentsMatch(s, ctx, toggleName, opts) {
		return Result{}
	}

	switch s.Type {
	case Default:
		return Result{Enabled: true}
	case FlexibleRollout, GradualRollout:
		return evaluateRollout(s, ctx, toggleName, opts)
	case UserWithID:
		return Result{Enabled: inList(s.param(ParamUserIDs), ctx, contexts.FieldUserID)}
	case RemoteAddress:
		return Result{Enabled: remoteAddressAllowed(s.param(ParamIPs), ctx)}
	case ApplicationHostname:
		return Result{Enabled: hostnameAllowed(s.param(ParamHostNames), ctx, opts.Hostname)}
	}
	return Result{}
}

func segmentsMatch(s *Strategy, ctx *contexts.Context, toggleName string, opts *Options) bool {
	for _, id := range s.Segments {
		var (
			cs []constraints.Constraint
			ok bool
		)
		if opts.Segments != nil {
			cs, ok = opts.Segments.SegmentConstraints(id)
		}
		if !ok {
			opts.logger().Debug("strategy references unknown segment",
				slog.String("toggle", toggleName),
				slog.Int("segment", id),
			)
			return false
		}
		if !constraints.All(cs, ctx) {
			return false
		}
	}
	return true
}

func evaluateRollout(s *Strategy, ctx *contexts.Context, toggleName string, opts *Options) Result {
	stickinessParam := s.fixedStickiness
	if stickinessParam == "" {
		stickinessParam = s.param(ParamStickiness)
	}
	stickiness := ResolveStickiness(stickinessParam, ctx, toggleName, opts)

	groupID := s.param(ParamGroupID)
	if groupID == "" {
		groupID = toggleName
	}

	rollout, ok := parsePercentage(s)
	if !ok {
		return Result{StickinessValue: stickiness}
	}
	bucket := utils.GetRolloutBucket(groupID, stickiness)
	return Result{
		Enabled:         float64(bucket) < rollout,
		StickinessValue: stickiness,
	}
}

// ResolveStickiness returns the hashing basis for a stickiness parameter: the named field, then
// userId, then sessionId, then a random value. The random fallback is logged because it makes the
// decision non-deterministic.
func ResolveStickiness(param string, ctx *contexts.Context, toggleName string, opts *Options) string {
	switch param {
	case StickinessRandom:
		return opts.random()
	case "", StickinessDefault:
	default:
		if v, ok := ctx.Value(param); ok {
			return v
		}
	}
	if v, ok := ctx.DefaultStickiness(); ok {
		return v
	}
	opts.logger().Debug("no stickiness field in context, using a random value",
		slog.String("toggle", toggleName),
		slog.String("stickiness", param),
	)
	return opts.random()
}

func parsePercentage(s *Strategy) (float64, bool) {
	raw, ok := s.Parameters[ParamRollout]
	if !ok {
		raw, ok = s.Parameters[ParamPercentage]
	}
	if !ok {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func inList(raw string, ctx *contexts.Context, field string) bool {
	value, ok := ctx.Value(field)
	if !ok {
		return false
	}
	return slices.Contains(utils.SplitList(raw), value)
}

// remoteAddressAllowed matches the context address against addresses and CIDR ranges.
func remoteAddressAllowed(raw string, ctx *contexts.Context) bool {
	value, ok := ctx.Value(contexts.FieldRemoteAddress)
	if !ok {
		return false
	}
	addr, addrErr := netip.ParseAddr(value)
	for _, entry := range utils.SplitList(raw) {
		if entry == value {
			return true
		}
		if addrErr != nil {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			if prefix.Contains(addr.Unmap()) {
				return true
			}
			continue
		}
		if other, err := netip.ParseAddr(entry); err == nil && other.Unmap() == addr.Unmap() {
			return true
		}
	}
	return false
}

func hostnameAllowed(raw string, ctx *contexts.Context, fallback string) bool {
	hostname, ok := ctx.Value(contexts.PropertyHostname)
	if !ok || hostname == "" {
		hostname = fallback
	}
	if hostname == "" {
		return false
	}
	return slices.ContainsFunc(utils.SplitList(raw), func(h string) bool {
		return strings.EqualFold(h, hostname)
	})
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Options) random() string {
	if o == nil || o.Random == nil {
		return ""
	}
	return o.Random()
}
