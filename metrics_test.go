package featurekit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/featurekit/featurekit-go"
)

func TestMetricsRecord(t *testing.T) {
	t.Parallel()
	m := featurekit.NewMetrics(nil)

	m.Record("checkout-v2", true, "blue")
	m.Record("checkout-v2", true, "blue")
	m.Record("checkout-v2", false, "disabled")
	m.Record("other", false, "")

	batch := m.SnapshotAndReset()
	assert.Equal(t, featurekit.ToggleCount{
		Yes:      2,
		No:       1,
		Variants: map[string]uint64{"blue": 2, "disabled": 1},
	}, batch.Toggles["checkout-v2"])
	assert.Equal(t, featurekit.ToggleCount{No: 1, Variants: map[string]uint64{}}, batch.Toggles["other"])
}

func TestMetricsWindows(t *testing.T) {
	t.Parallel()
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	m := featurekit.NewMetrics(clock)

	first := m.SnapshotAndReset()
	second := m.SnapshotAndReset()
	assert.Equal(t, time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC), first.Start)
	assert.Equal(t, first.Stop, second.Start)
	assert.True(t, second.Stop.After(second.Start))
	assert.True(t, first.IsEmpty())
}

func TestMetricsConcurrentRecordAndSnapshot(t *testing.T) {
	t.Parallel()
	m := featurekit.NewMetrics(nil)

	const workers, rounds = 8, 1000
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total uint64
	)
	collect := func(b featurekit.MetricsBatch) {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range b.Toggles {
			total += c.Yes + c.No
		}
	}

	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rounds {
				m.Record("toggle", i%2 == 0, "v")
				if w == 0 && i%100 == 0 {
					collect(m.SnapshotAndReset())
				}
			}
		}()
	}
	wg.Wait()
	collect(m.SnapshotAndReset())

	assert.Equal(t, uint64(workers*rounds), total)
}
