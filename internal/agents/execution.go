package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// ExecutionQuality advises on trade timing from spread and volume. It
// never emits a directional signal; its output is urgency advice that the
// consensus stage attaches to the suggested action. It is excluded from
// weighted scoring.
type ExecutionQuality struct{}

// NewExecutionQuality creates the execution-quality agent.
func NewExecutionQuality() *ExecutionQuality { return &ExecutionQuality{} }

func (a *ExecutionQuality) Type() Type { return TypeExecution }

func (a *ExecutionQuality) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	q := snap.Quote
	if q == nil || q.Bid <= 0 || q.Ask <= 0 {
		out := insufficientData(TypeExecution, "no quote stats in snapshot")
		out.Urgency = UrgencyNormal
		return out
	}

	mid := (q.Bid + q.Ask) / 2
	spreadPct := 0.0
	if mid > 0 {
		spreadPct = (q.Ask - q.Bid) / mid
	}
	volumeRatio := 0.0
	if q.AvgVolume > 0 {
		volumeRatio = q.LastVolume / q.AvgVolume
	}

	urgency := UrgencyNormal
	confidence := baseConfidence
	var notes []string

	switch {
	case spreadPct < 0.001 && volumeRatio > 1.2:
		urgency = UrgencyHigh
		confidence += 20
		notes = append(notes, "tight spread with above-average volume, favorable to execute now")
	case spreadPct > 0.005:
		urgency = UrgencyLow
		confidence += 10
		notes = append(notes, fmt.Sprintf("wide spread %.2f%%, prefer patient limit orders", spreadPct*100))
	case volumeRatio > 0 && volumeRatio < 0.5:
		urgency = UrgencyLow
		confidence += 5
		notes = append(notes, "thin volume, work the order slowly")
	default:
		notes = append(notes, "normal liquidity conditions")
	}

	return Analysis{
		Agent:      TypeExecution,
		Signal:     market.SignalHold, // advisory only, never directional
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: map[string]float64{
			"spread_pct":   spreadPct,
			"volume_ratio": volumeRatio,
		},
		Urgency:   urgency,
		CreatedAt: time.Now().UTC(),
	}
}
