// Package agents implements the independent analysis agents. Every agent
// is stateless and pure per call: it inspects one market snapshot and
// answers with a signal, a confidence, and the evidence it used. Agents
// never fail; a missing input bundle yields a neutral low-confidence
// result so the consensus barrier is never stalled.
package agents

import (
	"context"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// Type identifies an agent variant. Types double as weight-store keys.
type Type string

const (
	TypeTechnical   Type = "technical"
	TypeFundamental Type = "fundamental"
	TypeSentiment   Type = "sentiment"
	TypeRegime      Type = "regime"
	TypeExecution   Type = "execution"
	TypeOnChain     Type = "onchain"
	TypeNarrative   Type = "narrative"
	TypeCarry       Type = "carry"
	TypeInventory   Type = "inventory"
)

// Types lists every agent variant.
var Types = []Type{
	TypeTechnical, TypeFundamental, TypeSentiment, TypeRegime, TypeExecution,
	TypeOnChain, TypeNarrative, TypeCarry, TypeInventory,
}

// Valid reports whether t names a known agent variant.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Urgency levels for execution timing advice.
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

const (
	// insufficientConfidence is the confidence reported when an agent
	// lacks its required inputs.
	insufficientConfidence = 30

	// minConfidence and maxConfidence bound every agent's final
	// confidence.
	minConfidence = 10
	maxConfidence = 95

	// baseConfidence is the neutral starting point before evidence
	// accumulates.
	baseConfidence = 50
)

// Analysis is one agent's verdict on one snapshot. Produced fresh on every
// call and never mutated afterwards.
type Analysis struct {
	Agent      Type               `json:"agent"`
	Signal     market.Signal      `json:"signal"`
	Confidence int                `json:"confidence"`
	Reasoning  string             `json:"reasoning"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Urgency    string             `json:"urgency,omitempty"` // set by execution-quality agents only
	CreatedAt  time.Time          `json:"created_at"`
}

// Agent is the single capability every analysis variant implements.
// Analyze must not block indefinitely and must not return an error:
// data gaps are answered with a neutral hold.
type Agent interface {
	Type() Type
	Analyze(ctx context.Context, snap *market.MarketSnapshot) Analysis
}

// clampConfidence bounds a confidence value to [minConfidence, maxConfidence].
func clampConfidence(c int) int {
	if c < minConfidence {
		return minConfidence
	}
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

// insufficientData is the documented fallback for missing inputs: neutral
// signal, low confidence, reasoning naming the gap.
func insufficientData(t Type, gap string) Analysis {
	return Analysis{
		Agent:      t,
		Signal:     market.SignalHold,
		Confidence: insufficientConfidence,
		Reasoning:  "insufficient data: " + gap,
		CreatedAt:  time.Now().UTC(),
	}
}

// TimeoutFallback is the analysis substituted when an agent exceeds its
// per-call budget. It is treated identically to a data gap.
func TimeoutFallback(t Type) Analysis {
	return Analysis{
		Agent:      t,
		Signal:     market.SignalHold,
		Confidence: insufficientConfidence,
		Reasoning:  "analysis timed out",
		CreatedAt:  time.Now().UTC(),
	}
}
