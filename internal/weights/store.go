// Package weights holds the adaptive per-agent reliability weights: the
// only persistent mutable state in the engine. The store is written by
// exactly one component (the accuracy Tracker) and read by consensus
// engines through immutable snapshots, so a single decision always sees
// one consistent set of weights.
package weights

import (
	"sync"

	"github.com/quantfuse/quantfuse/internal/agents"
)

// defaultWeight is used for agent types the store was never seeded with.
const defaultWeight = 0.5

// DefaultWeights are the initial per-agent reliability priors. They are
// product-tuned starting points, not fitted values; the tracker adapts
// them from realized outcomes.
func DefaultWeights() map[agents.Type]float64 {
	return map[agents.Type]float64{
		agents.TypeTechnical:   0.65,
		agents.TypeFundamental: 0.60,
		agents.TypeSentiment:   0.55,
		agents.TypeRegime:      0.58,
		agents.TypeExecution:   0.50,
		agents.TypeOnChain:     0.57,
		agents.TypeNarrative:   0.52,
		agents.TypeCarry:       0.56,
		agents.TypeInventory:   0.55,
	}
}

// Snapshot is an immutable copy of all weights at one instant. All agents
// in a single decision cycle read the same snapshot.
type Snapshot map[agents.Type]float64

// Weight returns the weight for an agent type, falling back to the
// default for unseeded types.
func (s Snapshot) Weight(t agents.Type) float64 {
	if w, ok := s[t]; ok {
		return w
	}
	return defaultWeight
}

// Store owns the live weights. Mutation goes through the Tracker only.
type Store struct {
	mu      sync.RWMutex
	weights map[agents.Type]float64
}

// NewStore creates a store seeded with the given weights. A nil seed uses
// DefaultWeights.
func NewStore(seed map[agents.Type]float64) *Store {
	if seed == nil {
		seed = DefaultWeights()
	}
	weights := make(map[agents.Type]float64, len(seed))
	for t, w := range seed {
		weights[t] = clampWeight(w)
	}
	return &Store{weights: weights}
}

// Snapshot copies the current weights. The returned map is owned by the
// caller and never changes underneath it.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(Snapshot, len(s.weights))
	for t, w := range s.weights {
		snap[t] = w
	}
	return snap
}

// Weight reads one live weight.
func (s *Store) Weight(t agents.Type) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.weights[t]; ok {
		return w
	}
	return defaultWeight
}

// update applies fn to one weight under a single lock so concurrent
// feedback never tears a read-modify-write. Package-private: only the
// Tracker writes.
func (s *Store) update(t agents.Type, fn func(float64) float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.weights[t]
	if !ok {
		current = defaultWeight
	}
	next := clampWeight(fn(current))
	s.weights[t] = next
	return next
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
