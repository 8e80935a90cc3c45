package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// CarryBias is the forex substitute for fundamental analysis: the
// interest-rate differential between the pair's currencies plus the
// relative central-bank policy bias.
type CarryBias struct{}

// NewCarryBias creates the carry/central-bank-bias agent.
func NewCarryBias() *CarryBias { return &CarryBias{} }

func (a *CarryBias) Type() Type { return TypeCarry }

func (a *CarryBias) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	m := snap.Macro
	if m == nil {
		return insufficientData(TypeCarry, "no macro bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	diff := m.BaseRate - m.QuoteRate
	values := map[string]float64{
		"rate_differential": diff,
		"central_bank_bias": m.CentralBankBias,
	}

	// Positive carry favors the base currency.
	if diff > 1.5 {
		signal = market.SignalBuy
		confidence += 12
		notes = append(notes, fmt.Sprintf("positive carry %.2f%%", diff))
	} else if diff < -1.5 {
		signal = market.SignalSell
		confidence += 12
		notes = append(notes, fmt.Sprintf("negative carry %.2f%%", diff))
	}

	// Relative policy bias escalates or initiates.
	if m.CentralBankBias > 0.3 {
		if signal == market.SignalHold {
			signal = market.SignalBuy
		} else if signal.Score() > 0 {
			signal = signal.Escalate()
		}
		confidence += 8
		notes = append(notes, "base central bank relatively hawkish")
	} else if m.CentralBankBias < -0.3 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		} else if signal.Score() < 0 {
			signal = signal.Escalate()
		}
		confidence += 8
		notes = append(notes, "base central bank relatively dovish")
	}

	if len(notes) == 0 {
		notes = append(notes, "rate picture balanced")
	}

	return Analysis{
		Agent:      TypeCarry,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}
