// Package featurekit evaluates feature toggles locally against a configuration document.
//
// An [Engine] holds the active document behind an atomic pointer: [Engine.Load] replaces it
// wholesale and every evaluation observes exactly one document. Evaluations are counted into an
// in-memory accumulator drained with [Engine.SnapshotAndReset].
package featurekit

import (
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/featurekit/featurekit-go/flagengine"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/toggles"
	"github.com/featurekit/featurekit-go/internal/metrics"
)

// UnknownToggle is the name under which evaluations of toggles missing from the active document are
// counted, so arbitrary names cannot grow the metrics.
const UnknownToggle = "_unknown"

// Engine evaluates toggles of the most recently loaded document.
type Engine struct {
	document atomic.Pointer[toggles.Document]
	counts   *Metrics

	log      *slog.Logger
	clock    func() time.Time
	hostname string
	random   func() string
	prom     *metrics.Metrics
}

// New creates an engine with no document. Until the first successful [Engine.Load] every toggle is
// reported as not found.
func New(options ...Option) *Engine {
	e := &Engine{
		log:    slog.Default(),
		clock:  time.Now,
		random: uuid.NewString,
	}
	if hostname, err := os.Hostname(); err == nil {
		e.hostname = hostname
	}

	for _, opt := range options {
		opt(e)
	}

	e.log = e.log.With(slog.String("component", "engine"))
	e.counts = NewMetrics(e.clock)
	return e
}

// Load parses data and, when it is valid, atomically replaces the active document. On error the
// previous document stays active. Non-fatal configuration problems are logged and available from
// [Engine.Warnings].
func (e *Engine) Load(data []byte) error {
	doc, err := toggles.Parse(data)
	if e.prom != nil {
		toggleCount := 0
		if doc != nil {
			toggleCount = doc.Len()
		}
		e.prom.RecordLoad(err, toggleCount)
	}
	if err != nil {
		e.log.Error("failed to load toggle document", "error", err)
		return err
	}

	e.document.Store(doc)
	for _, w := range doc.Warnings() {
		e.log.Warn("toggle configuration problem",
			slog.String("toggle", w.Toggle),
			slog.String("problem", w.Msg),
		)
	}
	e.log.Debug("toggle document loaded",
		slog.Int("version", doc.Version()),
		slog.Int("toggles", doc.Len()),
	)
	return nil
}

// Ready reports whether a document has been loaded.
func (e *Engine) Ready() bool {
	return e.document.Load() != nil
}

// Document returns the active document, or nil before the first load.
func (e *Engine) Document() *toggles.Document {
	return e.document.Load()
}

// Warnings returns the configuration problems of the active document.
func (e *Engine) Warnings() []*toggles.ConfigurationError {
	doc := e.document.Load()
	if doc == nil {
		return nil
	}
	return doc.Warnings()
}

// Evaluate resolves the named toggle for ctx. A nil ctx evaluates with an empty context. Unknown
// names return a disabled result together with a *ToggleNotFoundError; they are counted as "no"
// under [UnknownToggle].
func (e *Engine) Evaluate(name string, ctx *contexts.Context) (flagengine.EvaluationResult, error) {
	doc := e.document.Load()
	if doc == nil {
		e.record(UnknownToggle, false, "")
		return notFoundResult(name), &ToggleNotFoundError{Name: name}
	}
	res, ok := flagengine.Resolve(doc, name, ctx.WithCurrentTime(e.clock()), e.resolveOptions())
	if !ok {
		e.record(UnknownToggle, false, "")
		return notFoundResult(name), &ToggleNotFoundError{Name: name}
	}
	e.record(res.Name, res.Enabled, res.Variant.Name)
	return res, nil
}

// IsEnabled reports the decision for the named toggle, false when it does not exist.
func (e *Engine) IsEnabled(name string, ctx *contexts.Context) bool {
	res, _ := e.Evaluate(name, ctx)
	return res.Enabled
}

// EvaluateAll resolves every toggle of the active document for ctx, ordered by toggle name.
func (e *Engine) EvaluateAll(ctx *contexts.Context) []flagengine.EvaluationResult {
	doc := e.document.Load()
	if doc == nil {
		return []flagengine.EvaluationResult{}
	}
	results := flagengine.ResolveAll(doc, ctx.WithCurrentTime(e.clock()), e.resolveOptions())
	for _, res := range results {
		e.record(res.Name, res.Enabled, res.Variant.Name)
	}
	return results
}

// SnapshotAndReset returns the counts gathered since the previous call and starts a new window.
func (e *Engine) SnapshotAndReset() MetricsBatch {
	return e.counts.SnapshotAndReset()
}

// MetricsHandler exposes the Prometheus collectors enabled with [WithPrometheus]. It returns nil
// when they are disabled.
func (e *Engine) MetricsHandler() http.Handler {
	if e.prom == nil {
		return nil
	}
	return e.prom.Handler()
}

func (e *Engine) resolveOptions() *flagengine.Options {
	return &flagengine.Options{
		Hostname: e.hostname,
		Random:   e.random,
		Logger:   e.log,
	}
}

func (e *Engine) record(name string, enabled bool, variant string) {
	e.counts.Record(name, enabled, variant)
	if e.prom != nil {
		e.prom.RecordEvaluation(name, enabled, variant)
	}
}

func notFoundResult(name string) flagengine.EvaluationResult {
	return flagengine.EvaluationResult{Name: name, Variant: flagengine.DisabledVariant(false)}
}
