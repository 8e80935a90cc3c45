package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfuse/quantfuse/internal/market"
)

// trendingCandles builds n candles drifting upward with a small
// oscillation so every indicator has something to chew on.
func trendingCandles(n int) []market.Candle {
	candles := make([]market.Candle, n)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := 100 + 0.5*float64(i) + 2*math.Sin(float64(i)/3)
		candles[i] = market.Candle{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   price - 0.2,
			High:   price + 1.5,
			Low:    price - 1.5,
			Close:  price,
			Volume: 1_000_000,
		}
	}
	return candles
}

func TestComputeBundleInsufficientHistory(t *testing.T) {
	_, err := ComputeBundle(trendingCandles(minBars - 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient history")

	_, err = ComputeBundle(nil)
	assert.Error(t, err)
}

func TestComputeBundlePopulatesIndicators(t *testing.T) {
	bundle, err := ComputeBundle(trendingCandles(60))
	require.NoError(t, err)

	assert.Greater(t, bundle.RSI, 0.0)
	assert.Less(t, bundle.RSI, 100.0)
	// Upward drift keeps RSI on the strong side.
	assert.Greater(t, bundle.RSI, 50.0)

	assert.Greater(t, bundle.ATR, 0.0)

	assert.Less(t, bundle.BollingerLower, bundle.BollingerMid)
	assert.Less(t, bundle.BollingerMid, bundle.BollingerUpper)

	// Rising closes stack the short EMAs above the long ones.
	assert.Greater(t, bundle.EMA8, bundle.EMA21)
	assert.Greater(t, bundle.EMA21, bundle.EMA50)

	// Sustained uptrend keeps the MACD line above its signal.
	assert.Greater(t, bundle.MACD.Line, 0.0)
	assert.InDelta(t, bundle.MACD.Line-bundle.MACD.Signal, bundle.MACD.Histogram, 1e-9)
}

func TestComputeBundleShortHistoryEMA(t *testing.T) {
	bundle, err := ComputeBundle(trendingCandles(60))
	require.NoError(t, err)

	// 200-bar EMA has no 60-bar answer; zero means missing.
	assert.Zero(t, bundle.EMA200)
	assert.NotZero(t, bundle.EMA50)

	long, err := ComputeBundle(trendingCandles(250))
	require.NoError(t, err)
	assert.NotZero(t, long.EMA200)
}
