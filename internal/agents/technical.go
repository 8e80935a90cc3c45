package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// Technical analyzes the precomputed indicator bundle: momentum (RSI),
// trend (MACD, EMA stack), volatility bands, and short-window price
// structure. It starts neutral and accumulates evidence; no single rule
// decides alone.
type Technical struct{}

// NewTechnical creates the technical analysis agent.
func NewTechnical() *Technical { return &Technical{} }

func (a *Technical) Type() Type { return TypeTechnical }

func (a *Technical) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	ind := snap.Indicators
	if ind == nil {
		return insufficientData(TypeTechnical, "no indicator bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	values := map[string]float64{
		"rsi":            ind.RSI,
		"macd_histogram": ind.MACD.Histogram,
		"ema_8":          ind.EMA8,
		"ema_200":        ind.EMA200,
		"atr":            ind.ATR,
	}

	// Momentum: RSI extremes set the initial direction.
	if ind.RSI < 30 {
		signal = market.SignalBuy
		confidence += 15
		notes = append(notes, fmt.Sprintf("RSI %.1f oversold", ind.RSI))
	} else if ind.RSI > 70 {
		signal = market.SignalSell
		confidence += 15
		notes = append(notes, fmt.Sprintf("RSI %.1f overbought", ind.RSI))
	}

	// MACD escalates an existing direction when the histogram agrees
	// with the line/signal crossing.
	macdBullish := ind.MACD.Histogram > 0 && ind.MACD.Line > ind.MACD.Signal
	macdBearish := ind.MACD.Histogram < 0 && ind.MACD.Line < ind.MACD.Signal
	if macdBullish && signal == market.SignalBuy {
		signal = signal.Escalate()
		confidence += 10
		notes = append(notes, "MACD bullish crossover confirms")
	} else if macdBearish && signal == market.SignalSell {
		signal = signal.Escalate()
		confidence += 10
		notes = append(notes, "MACD bearish crossover confirms")
	}

	// Moving-average stack confirms an established trend direction.
	stackBullish := ind.EMA8 > ind.EMA21 && ind.EMA21 > ind.EMA50 && ind.EMA50 > ind.EMA200
	stackBearish := ind.EMA8 < ind.EMA21 && ind.EMA21 < ind.EMA50 && ind.EMA50 < ind.EMA200
	if stackBullish && signal.Score() > 0 {
		confidence += 10
		notes = append(notes, "EMA stack aligned bullish")
	} else if stackBearish && signal.Score() < 0 {
		confidence += 10
		notes = append(notes, "EMA stack aligned bearish")
	}

	// Volatility band touches nudge a neutral signal.
	if ind.BollingerLower > 0 && snap.Price <= ind.BollingerLower {
		if signal == market.SignalHold {
			signal = market.SignalBuy
		}
		confidence += 8
		notes = append(notes, "price at lower Bollinger band")
	} else if ind.BollingerUpper > 0 && snap.Price >= ind.BollingerUpper {
		if signal == market.SignalHold {
			signal = market.SignalSell
		}
		confidence += 8
		notes = append(notes, "price at upper Bollinger band")
	}

	// Short-window structure adds conviction only, never direction.
	if hh, ll := priceStructure(snap.Candles, 5); hh && signal.Score() > 0 {
		confidence += 5
		notes = append(notes, "higher highs over last 5 bars")
	} else if ll && signal.Score() < 0 {
		confidence += 5
		notes = append(notes, "lower lows over last 5 bars")
	}

	if len(notes) == 0 {
		notes = append(notes, "no indicator rule triggered")
	}

	return Analysis{
		Agent:      TypeTechnical,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}

// priceStructure reports whether the last window bars made strictly higher
// highs or strictly lower lows.
func priceStructure(candles []market.Candle, window int) (higherHighs, lowerLows bool) {
	if len(candles) < window {
		return false, false
	}
	recent := candles[len(candles)-window:]
	higherHighs, lowerLows = true, true
	for i := 1; i < len(recent); i++ {
		if recent[i].High <= recent[i-1].High {
			higherHighs = false
		}
		if recent[i].Low >= recent[i-1].Low {
			lowerLows = false
		}
	}
	return higherHighs, lowerLows
}
