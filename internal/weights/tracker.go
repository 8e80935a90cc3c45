package weights

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/metrics"
)

const (
	// emaDecay and emaReward define the exponential smoothing of
	// directional accuracy: w' = w*0.95 + (correct ? 0.05 : 0).
	// For any boolean feedback sequence the weight stays within [0,1].
	emaDecay  = 0.95
	emaReward = 0.05
)

// Tracker is the sole writer of agent weights. It consumes realized
// outcome feedback from an external outcome evaluator and runs off the
// decision path: recording never blocks an in-flight decision.
type Tracker struct {
	store *Store
	log   zerolog.Logger
}

// NewTracker creates the accuracy tracker over a weight store.
func NewTracker(store *Store) *Tracker {
	return &Tracker{
		store: store,
		log:   log.With().Str("component", "accuracy_tracker").Logger(),
	}
}

// Record folds one realized outcome into the agent's weight and returns
// the updated value.
func (t *Tracker) Record(agentType agents.Type, wasCorrect bool) float64 {
	updated := t.store.update(agentType, func(w float64) float64 {
		next := w * emaDecay
		if wasCorrect {
			next += emaReward
		}
		return next
	})

	metrics.AgentWeight.WithLabelValues(string(agentType)).Set(updated)

	t.log.Debug().
		Str("agent", string(agentType)).
		Bool("correct", wasCorrect).
		Float64("weight", updated).
		Msg("Agent weight updated")

	return updated
}
