package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/market"
)

// Default indicator parameters.
const (
	rsiPeriod       = 14
	macdFastPeriod  = 12
	macdSlowPeriod  = 26
	macdSignal      = 9
	bollingerPeriod = 20
	atrPeriod       = 14
)

// emaPeriods are the moving-average stack lengths the technical agent
// reads for trend alignment.
var emaPeriods = []int{8, 21, 50, 200}

// minBars is the minimum history needed for the slowest short-horizon
// indicator (MACD slow + signal). Longer EMAs degrade gracefully.
const minBars = macdSlowPeriod + macdSignal

// ComputeBundle precomputes the snapshot indicator set from candle
// history. EMAs whose period exceeds the available history are left at
// zero; consumers treat zero as missing.
func ComputeBundle(candles []market.Candle) (*market.IndicatorBundle, error) {
	if len(candles) < minBars {
		return nil, fmt.Errorf("insufficient history: need at least %d candles, got %d", minBars, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	bundle := &market.IndicatorBundle{
		RSI: lastRSI(closes, rsiPeriod),
		ATR: lastATR(highs, lows, closes, atrPeriod),
	}
	bundle.MACD = lastMACD(closes)
	bundle.BollingerLower, bundle.BollingerMid, bundle.BollingerUpper = lastBollinger(closes, bollingerPeriod)

	emas := make([]float64, len(emaPeriods))
	for i, period := range emaPeriods {
		emas[i] = lastEMA(closes, period)
	}
	bundle.EMA8, bundle.EMA21, bundle.EMA50, bundle.EMA200 = emas[0], emas[1], emas[2], emas[3]

	log.Debug().
		Int("candles", len(candles)).
		Float64("rsi", bundle.RSI).
		Float64("atr", bundle.ATR).
		Msg("Indicator bundle computed")
	return bundle, nil
}

// toChan converts a price slice to the closed channel form the
// cinar/indicator computations consume.
func toChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

// last drains a result channel and returns the final value, or 0 when
// the indicator produced nothing.
func last(ch <-chan float64) float64 {
	out := 0.0
	for v := range ch {
		out = v
	}
	return out
}

func lastRSI(closes []float64, period int) float64 {
	rsi := momentum.NewRsiWithPeriod[float64](period)
	return last(rsi.Compute(toChan(closes)))
}

func lastEMA(closes []float64, period int) float64 {
	if period > len(closes) {
		return 0
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	return last(ema.Compute(toChan(closes)))
}

func lastMACD(closes []float64) market.MACDValue {
	macd := trend.NewMacdWithPeriod[float64](macdFastPeriod, macdSlowPeriod, macdSignal)
	macdChan, signalChan := macd.Compute(toChan(closes))

	var line, signal float64
	for {
		m, mok := <-macdChan
		s, sok := <-signalChan
		if !mok || !sok {
			break
		}
		line, signal = m, s
	}
	return market.MACDValue{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}

func lastBollinger(closes []float64, period int) (lower, middle, upper float64) {
	bb := volatility.NewBollingerBands[float64]()
	bb.Period = period
	lowerChan, middleChan, upperChan := bb.Compute(toChan(closes))
	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lower, middle, upper = l, m, u
	}
	return lower, middle, upper
}

func lastATR(highs, lows, closes []float64, period int) float64 {
	atr := volatility.NewAtrWithPeriod[float64](period)
	return last(atr.Compute(toChan(highs), toChan(lows), toChan(closes)))
}
