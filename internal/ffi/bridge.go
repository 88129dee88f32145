package ffi

import (
	"errors"

	"github.com/featurekit/featurekit-go"
)

// LoadResult is the value of a successful load response.
type LoadResult struct {
	Toggles  int      `json:"toggles"`
	Warnings []string `json:"warnings,omitempty"`
}

// Bridge adapts an engine to the byte-oriented library calls.
type Bridge struct {
	engine *featurekit.Engine
}

func NewBridge(engine *featurekit.Engine) *Bridge {
	return &Bridge{engine: engine}
}

// Load replaces the document and answers with a response envelope. Configuration warnings do not
// fail the load; they are listed in the value.
func (b *Bridge) Load(document []byte) []byte {
	if err := b.engine.Load(document); err != nil {
		return Failure(err)
	}
	res := LoadResult{Toggles: b.engine.Document().Len()}
	for _, w := range b.engine.Warnings() {
		res.Warnings = append(res.Warnings, w.Error())
	}
	return OK(res)
}

// Resolve evaluates one toggle for an encoded Context and returns an encoded EvaluatedToggle. An
// unknown toggle is encoded with found unset.
func (b *Bridge) Resolve(name string, context []byte) ([]byte, error) {
	ctx, err := DecodeContext(context)
	if err != nil {
		return nil, err
	}
	res, err := b.engine.Evaluate(name, ctx)
	var notFound *featurekit.ToggleNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, err
	}
	t := FromResult(res, err == nil)
	return t.Marshal(), nil
}

// ResolveAll evaluates every toggle and returns an encoded EvaluatedToggleList. Without includeAll
// disabled toggles are left out.
func (b *Bridge) ResolveAll(context []byte, includeAll bool) ([]byte, error) {
	ctx, err := DecodeContext(context)
	if err != nil {
		return nil, err
	}
	results := b.engine.EvaluateAll(ctx)
	ts := make([]EvaluatedToggle, 0, len(results))
	for _, res := range results {
		if !includeAll && !res.Enabled {
			continue
		}
		ts = append(ts, FromResult(res, true))
	}
	return MarshalList(ts), nil
}

// SnapshotMetrics drains the engine counters into a response envelope.
func (b *Bridge) SnapshotMetrics() []byte {
	return OK(b.engine.SnapshotAndReset())
}
