package featurekit

import (
	"log/slog"
	"time"

	"github.com/featurekit/featurekit-go/internal/metrics"
)

type Option func(e *Engine)

var _ = []Option{
	WithLogger(nil),
	WithClock(nil),
	WithHostname(""),
	WithRandomSource(nil),
	WithPrometheus(),
}

// WithLogger sets the logger used by the engine. A nil logger keeps [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger
		}
	}
}

// WithClock sets the source of the current time used for contexts without one and for metrics
// windows.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithHostname overrides the hostname matched by applicationHostname strategies when the context
// carries none.
func WithHostname(hostname string) Option {
	return func(e *Engine) {
		e.hostname = hostname
	}
}

// WithRandomSource sets the generator for stickiness values when a context has no user or session.
func WithRandomSource(random func() string) Option {
	return func(e *Engine) {
		if random != nil {
			e.random = random
		}
	}
}

// WithPrometheus mirrors evaluation and load counters into Prometheus collectors served by
// [Engine.MetricsHandler].
func WithPrometheus() Option {
	return func(e *Engine) {
		e.prom = metrics.New()
	}
}
