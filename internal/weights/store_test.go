package weights

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfuse/quantfuse/internal/agents"
)

func TestStoreDefaults(t *testing.T) {
	store := NewStore(nil)

	assert.InDelta(t, 0.65, store.Weight(agents.TypeTechnical), 1e-9)
	assert.InDelta(t, 0.50, store.Weight(agents.TypeExecution), 1e-9)
	assert.InDelta(t, defaultWeight, store.Weight(agents.Type("unseeded")), 1e-9)
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore(nil)
	tracker := NewTracker(store)

	snap := store.Snapshot()
	before := snap.Weight(agents.TypeTechnical)

	tracker.Record(agents.TypeTechnical, false)

	// The snapshot taken before the update must not move.
	assert.InDelta(t, before, snap.Weight(agents.TypeTechnical), 1e-9)
	assert.Less(t, store.Weight(agents.TypeTechnical), before)
}

func TestTrackerEMAUpdate(t *testing.T) {
	store := NewStore(map[agents.Type]float64{agents.TypeSentiment: 0.55})
	tracker := NewTracker(store)

	updated := tracker.Record(agents.TypeSentiment, true)
	assert.InDelta(t, 0.55*emaDecay+emaReward, updated, 1e-9)

	updated = tracker.Record(agents.TypeSentiment, false)
	assert.InDelta(t, (0.55*emaDecay+emaReward)*emaDecay, updated, 1e-9)
}

func TestTrackerWeightStaysBounded(t *testing.T) {
	store := NewStore(map[agents.Type]float64{agents.TypeRegime: 0.58})
	tracker := NewTracker(store)

	// Long winning streak converges toward 1 without exceeding it.
	for i := 0; i < 500; i++ {
		w := tracker.Record(agents.TypeRegime, true)
		require.LessOrEqual(t, w, 1.0)
		require.GreaterOrEqual(t, w, 0.0)
	}
	assert.Greater(t, store.Weight(agents.TypeRegime), 0.9)

	// Long losing streak decays toward 0 without going below it.
	for i := 0; i < 500; i++ {
		w := tracker.Record(agents.TypeRegime, false)
		require.GreaterOrEqual(t, w, 0.0)
	}
	assert.Less(t, store.Weight(agents.TypeRegime), 0.05)
}

func TestTrackerConcurrentFeedback(t *testing.T) {
	store := NewStore(nil)
	tracker := NewTracker(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(correct bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Record(agents.TypeOnChain, correct)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	w := store.Weight(agents.TypeOnChain)
	assert.GreaterOrEqual(t, w, 0.0)
	assert.LessOrEqual(t, w, 1.0)
}

func TestNewStoreClampsSeeds(t *testing.T) {
	store := NewStore(map[agents.Type]float64{
		agents.TypeTechnical: 1.7,
		agents.TypeCarry:     -0.2,
	})
	assert.Equal(t, 1.0, store.Weight(agents.TypeTechnical))
	assert.Equal(t, 0.0, store.Weight(agents.TypeCarry))
}
