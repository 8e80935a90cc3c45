package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

const regimeMinBars = 20

// Regime classifies the prevailing market regime from price history:
// moving-average trend plus rolling return volatility. Bullish regimes
// lean buy, bearish lean sell, and elevated volatility drains conviction
// from either.
type Regime struct{}

// NewRegime creates the regime classification agent.
func NewRegime() *Regime { return &Regime{} }

func (a *Regime) Type() Type { return TypeRegime }

func (a *Regime) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	if len(snap.Candles) < regimeMinBars {
		return insufficientData(TypeRegime, fmt.Sprintf("need %d+ bars of history, got %d", regimeMinBars, len(snap.Candles)))
	}

	closes := make([]float64, len(snap.Candles))
	for i, c := range snap.Candles {
		closes[i] = c.Close
	}

	volatility := returnStdDev(closes)
	shortMA := movingAverage(closes, 10)
	longMA := movingAverage(closes, 20)

	priceTrend := 0.0
	if closes[0] > 0 {
		priceTrend = (closes[len(closes)-1] - closes[0]) / closes[0]
	}
	maTrend := 0.0
	if longMA > 0 {
		maTrend = (shortMA - longMA) / longMA
	}
	trendStrength := (priceTrend + maTrend) / 2

	signal := market.SignalHold
	confidence := baseConfidence
	var regime string
	switch {
	case maTrend > 0.02 && priceTrend > 0:
		regime = "bullish"
		signal = market.SignalBuy
		confidence += int(math.Min(15, math.Abs(trendStrength)*100))
	case maTrend < -0.02 && priceTrend < 0:
		regime = "bearish"
		signal = market.SignalSell
		confidence += int(math.Min(15, math.Abs(trendStrength)*100))
	default:
		regime = "sideways"
	}

	notes := []string{fmt.Sprintf("%s regime, trend strength %.3f", regime, trendStrength)}

	// High daily volatility undermines the trend read.
	if volatility > 0.05 {
		confidence -= 10
		notes = append(notes, fmt.Sprintf("volatility %.1f%% elevated", volatility*100))
	}

	return Analysis{
		Agent:      TypeRegime,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: map[string]float64{
			"volatility":     volatility,
			"short_ma":       shortMA,
			"long_ma":        longMA,
			"trend_strength": trendStrength,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// returnStdDev computes the sample standard deviation of bar-over-bar
// returns.
func returnStdDev(closes []float64) float64 {
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
		}
	}
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	if len(returns) > 1 {
		variance /= float64(len(returns) - 1)
	} else {
		variance /= float64(len(returns))
	}
	return math.Sqrt(variance)
}

// movingAverage computes a simple moving average over the most recent
// period values.
func movingAverage(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}
