package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// Fundamental analyzes valuation ratios and growth. Cheap valuations with
// growing revenue push toward buy; stretched multiples and deteriorating
// fundamentals push toward sell.
type Fundamental struct{}

// NewFundamental creates the fundamental analysis agent.
func NewFundamental() *Fundamental { return &Fundamental{} }

func (a *Fundamental) Type() Type { return TypeFundamental }

func (a *Fundamental) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	f := snap.Fundamentals
	if f == nil {
		return insufficientData(TypeFundamental, "no fundamentals bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	values := map[string]float64{
		"pe_ratio":       f.PERatio,
		"peg_ratio":      f.PEGRatio,
		"revenue_growth": f.RevenueGrowth,
		"debt_to_equity": f.DebtToEquity,
	}

	// Valuation sets the initial direction.
	if f.PERatio > 0 && f.PERatio < 15 {
		signal = market.SignalBuy
		confidence += 12
		notes = append(notes, fmt.Sprintf("P/E %.1f is cheap", f.PERatio))
	} else if f.PERatio > 40 {
		signal = market.SignalSell
		confidence += 12
		notes = append(notes, fmt.Sprintf("P/E %.1f is stretched", f.PERatio))
	}

	// Growth-adjusted valuation escalates or initiates.
	if f.PEGRatio > 0 && f.PEGRatio < 1 {
		if signal == market.SignalHold {
			signal = market.SignalBuy
		} else {
			signal = signal.Escalate()
		}
		confidence += 8
		notes = append(notes, fmt.Sprintf("PEG %.2f undervalues growth", f.PEGRatio))
	} else if f.PEGRatio > 2 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		} else if signal.Score() < 0 {
			signal = signal.Escalate()
		}
		confidence += 8
		notes = append(notes, fmt.Sprintf("PEG %.2f overvalues growth", f.PEGRatio))
	}

	// Revenue trajectory.
	if f.RevenueGrowth > 0.20 {
		if signal == market.SignalHold {
			signal = market.SignalBuy
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("revenue growing %.0f%% yoy", f.RevenueGrowth*100))
	} else if f.RevenueGrowth < -0.10 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("revenue shrinking %.0f%% yoy", f.RevenueGrowth*100))
	}

	// Balance-sheet stress nudges bearish.
	if f.DebtToEquity > 2 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		}
		confidence += 8
		notes = append(notes, fmt.Sprintf("debt/equity %.1f elevated", f.DebtToEquity))
	}

	// Margin quality adds conviction only.
	if f.ProfitMargin > 0.20 && signal.Score() > 0 {
		confidence += 5
		notes = append(notes, "strong profit margins")
	}

	if len(notes) == 0 {
		notes = append(notes, "valuation and growth unremarkable")
	}

	return Analysis{
		Agent:      TypeFundamental,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}
