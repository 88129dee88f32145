package featurekit

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// backoff handles exponential backoff with jitter
type backoff struct {
	current time.Duration
	initial time.Duration
	max     time.Duration
}

func newBackoff() *backoff {
	return &backoff{
		current: initialBackoff,
		initial: initialBackoff,
		max:     maxBackoff,
	}
}

// next returns the next backoff duration and doubles the current one, up to the cap
func (b *backoff) next() time.Duration {
	// up to half of the current step as jitter
	d := b.current + rand.N(b.current/2+1)

	if b.current < b.max {
		b.current = min(b.current*2, b.max)
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}

// wait sleeps for the next backoff step. It returns false when ctx ended first.
func (b *backoff) wait(ctx context.Context) bool {
	t := time.NewTimer(b.next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
