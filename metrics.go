package featurekit

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsBatch is the usage gathered over one window.
type MetricsBatch struct {
	Start   time.Time              `json:"start"`
	Stop    time.Time              `json:"stop"`
	Toggles map[string]ToggleCount `json:"toggles"`
}

// ToggleCount is the usage of one toggle.
type ToggleCount struct {
	Yes      uint64            `json:"yes"`
	No       uint64            `json:"no"`
	Variants map[string]uint64 `json:"variants"`
}

// IsEmpty reports whether the batch recorded no evaluation.
func (b *MetricsBatch) IsEmpty() bool {
	return len(b.Toggles) == 0
}

type toggleCounter struct {
	yes      atomic.Uint64
	no       atomic.Uint64
	variants sync.Map // string -> *atomic.Uint64
}

func (c *toggleCounter) add(enabled bool, variant string) {
	if enabled {
		c.yes.Add(1)
	} else {
		c.no.Add(1)
	}
	if variant == "" {
		return
	}
	n, ok := c.variants.Load(variant)
	if !ok {
		n, _ = c.variants.LoadOrStore(variant, new(atomic.Uint64))
	}
	n.(*atomic.Uint64).Add(1)
}

func (c *toggleCounter) snapshot() ToggleCount {
	tc := ToggleCount{Yes: c.yes.Load(), No: c.no.Load(), Variants: map[string]uint64{}}
	c.variants.Range(func(k, v any) bool {
		tc.Variants[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return tc
}

// Metrics accumulates per-toggle counts between snapshots. Record takes the read lock and bumps
// atomic counters; SnapshotAndReset swaps the counter map under the write lock, so no increment
// lands in a drained window.
type Metrics struct {
	mu      sync.RWMutex
	clock   func() time.Time
	start   time.Time
	toggles map[string]*toggleCounter
}

// NewMetrics creates an accumulator whose first window starts now.
func NewMetrics(clock func() time.Time) *Metrics {
	if clock == nil {
		clock = time.Now
	}
	return &Metrics{
		clock:   clock,
		start:   clock(),
		toggles: make(map[string]*toggleCounter),
	}
}

// Record counts one evaluation. An empty variant is not counted as a variant.
func (m *Metrics) Record(toggle string, enabled bool, variant string) {
	m.mu.RLock()
	c, ok := m.toggles[toggle]
	if ok {
		c.add(enabled, variant)
		m.mu.RUnlock()
		return
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok = m.toggles[toggle]
	if !ok {
		c = &toggleCounter{}
		m.toggles[toggle] = c
	}
	c.add(enabled, variant)
}

// SnapshotAndReset returns the current window and opens a new one.
func (m *Metrics) SnapshotAndReset() MetricsBatch {
	m.mu.Lock()
	counters, start := m.toggles, m.start
	now := m.clock()
	m.toggles = make(map[string]*toggleCounter)
	m.start = now
	m.mu.Unlock()

	batch := MetricsBatch{
		Start:   start,
		Stop:    now,
		Toggles: make(map[string]ToggleCount, len(counters)),
	}
	for name, c := range counters {
		batch.Toggles[name] = c.snapshot()
	}
	return batch
}
