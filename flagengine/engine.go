// Package flagengine resolves toggles of a loaded document against an evaluation context.
package flagengine

import (
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/strategies"
	"github.com/featurekit/featurekit-go/flagengine/toggles"
	"github.com/featurekit/featurekit-go/flagengine/variants"
)

// Options configures a resolution. The zero value is usable.
type Options struct {
	// Hostname is the fallback for applicationHostname strategies.
	Hostname string
	// Random generates stickiness values when the context has none. Defaults to random UUIDs.
	Random func() string
	Logger *slog.Logger
}

// Resolve evaluates the named toggle. It reports false when the document has no such toggle.
func Resolve(doc *toggles.Document, name string, ctx *contexts.Context, opts *Options) (EvaluationResult, bool) {
	i, ok := doc.Index(name)
	if !ok {
		return EvaluationResult{}, false
	}
	return ResolveAt(doc, i, ctx, opts), true
}

// ResolveAt evaluates the toggle at index i of doc.
func ResolveAt(doc *toggles.Document, i int, ctx *contexts.Context, opts *Options) EvaluationResult {
	r := newResolver(doc, ctx, opts)
	return r.result(i, r.resolve(i))
}

// ResolveAll evaluates every toggle of doc, ordered by toggle name.
func ResolveAll(doc *toggles.Document, ctx *contexts.Context, opts *Options) []EvaluationResult {
	results := make([]EvaluationResult, 0, doc.Len())
	for _, name := range doc.Names() {
		i, _ := doc.Index(name)
		results = append(results, ResolveAt(doc, i, ctx, opts))
	}
	return results
}

// decision is the intermediate outcome of one toggle, kept for dependants.
type decision struct {
	enabled    bool
	variant    *variants.Variant
	stickiness string
}

func (d decision) variantName() string {
	if d.variant == nil {
		return variants.DisabledName
	}
	return d.variant.Name
}

type resolver struct {
	doc    *toggles.Document
	ctx    *contexts.Context
	sopts  strategies.Options
	logger *slog.Logger
}

func newResolver(doc *toggles.Document, ctx *contexts.Context, opts *Options) *resolver {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	random := opts.Random
	if random == nil {
		random = uuid.NewString
	}

	// one random value per resolution keeps rollout and variant hashing consistent
	var memo string
	return &resolver{
		doc:    doc,
		ctx:    ctx,
		logger: logger,
		sopts: strategies.Options{
			Segments: doc,
			Hostname: opts.Hostname,
			Logger:   logger,
			Random: func() string {
				if memo == "" {
					memo = random()
				}
				return memo
			},
		},
	}
}

// resolve evaluates the ancestors of i in their precomputed order, then i itself.
func (r *resolver) resolve(i int) decision {
	if r.doc.IsCyclic(i) {
		r.logger.Debug("toggle is part of a dependency cycle", slog.String("toggle", r.doc.ToggleAt(i).Name))
		return decision{}
	}
	order := r.doc.DependencyOrder(i)
	var resolved map[int]decision
	if len(order) > 0 {
		resolved = make(map[int]decision, len(order))
		for _, j := range order {
			if r.doc.IsCyclic(j) {
				resolved[j] = decision{}
				continue
			}
			resolved[j] = r.decide(j, resolved)
		}
	}
	return r.decide(i, resolved)
}

func (r *resolver) decide(i int, resolved map[int]decision) decision {
	t := r.doc.ToggleAt(i)
	if !t.Enabled {
		return decision{}
	}
	if !r.dependenciesSatisfied(i, t, resolved) {
		return decision{}
	}

	enabled, winner, stickiness := r.evaluateStrategies(t)
	if !enabled {
		return decision{}
	}

	d := decision{enabled: true, stickiness: stickiness}
	vs := t.Variants
	param := ""
	if winner != nil && len(winner.Variants) > 0 {
		vs = winner.Variants
		param = winner.Parameters[strategies.ParamStickiness]
	} else if len(vs) > 0 {
		param = vs[0].Stickiness
	}
	if len(vs) == 0 {
		return d
	}
	if d.stickiness == "" || param != "" {
		d.stickiness = strategies.ResolveStickiness(param, r.ctx, t.Name, &r.sopts)
	}
	d.variant = variants.Select(vs, t.Name, d.stickiness, r.ctx)
	return d
}

func (r *resolver) dependenciesSatisfied(i int, t *toggles.Toggle, resolved map[int]decision) bool {
	parents := r.doc.Parents(i)
	for k := range t.Dependencies {
		dep := &t.Dependencies[k]
		p := parents[k]
		if p < 0 || r.doc.IsCyclic(p) {
			return false
		}
		pd := resolved[p]
		if pd.enabled != dep.RequiresEnabled() {
			return false
		}
		if len(dep.Variants) > 0 && !slices.Contains(dep.Variants, pd.variantName()) {
			return false
		}
	}
	return true
}

// evaluateStrategies ORs the strategies of t. It returns the first enabled strategy, nil when t has
// no strategies, together with the stickiness value it hashed.
func (r *resolver) evaluateStrategies(t *toggles.Toggle) (bool, *strategies.Strategy, string) {
	if len(t.Strategies) == 0 {
		return true, nil, ""
	}
	for j := range t.Strategies {
		s := &t.Strategies[j]
		res := strategies.Evaluate(s, r.ctx, t.Name, &r.sopts)
		if res.Enabled {
			return true, s, res.StickinessValue
		}
	}
	return false, nil, ""
}

func (r *resolver) result(i int, d decision) EvaluationResult {
	t := r.doc.ToggleAt(i)
	res := EvaluationResult{
		Name:            t.Name,
		Enabled:         d.enabled,
		Variant:         DisabledVariant(d.enabled),
		StickinessValue: d.stickiness,
		ImpressionData:  t.ImpressionData,
		Project:         t.Project,
	}
	if d.enabled && d.variant != nil {
		res.Variant = VariantResult{
			Name:           d.variant.Name,
			Enabled:        true,
			FeatureEnabled: true,
		}
		if d.variant.Payload != nil {
			payload := *d.variant.Payload
			res.Variant.Payload = &payload
		}
	}
	return res
}
