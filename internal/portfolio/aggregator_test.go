package portfolio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/consensus"
	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/router"
)

func result(symbol string, class market.AssetClass, signal market.Signal, level string) *router.Result {
	return &router.Result{
		Symbol:    symbol,
		Class:     class,
		Signal:    signal,
		RiskLevel: level,
	}
}

func TestAssessConcentratedTwoClassBook(t *testing.T) {
	// 3 stock + 3 crypto out of 6: HHI = 0.5^2 + 0.5^2 = 0.5, score 50.
	results := []*router.Result{
		result("AAPL", market.AssetStock, market.SignalBuy, router.RiskLevelLow),
		result("MSFT", market.AssetStock, market.SignalHold, router.RiskLevelLow),
		result("NVDA", market.AssetStock, market.SignalBuy, router.RiskLevelMedium),
		result("BTCUSDT", market.AssetCrypto, market.SignalBuy, router.RiskLevelMedium),
		result("ETHUSDT", market.AssetCrypto, market.SignalHold, router.RiskLevelLow),
		result("SOLUSDT", market.AssetCrypto, market.SignalBuy, router.RiskLevelLow),
	}

	assessment := NewAggregator().Assess(results, nil)

	assert.Equal(t, 6, assessment.TotalAssets)
	assert.Equal(t, 3, assessment.ClassCounts[market.AssetStock])
	assert.Equal(t, 3, assessment.ClassCounts[market.AssetCrypto])
	assert.Equal(t, 50, assessment.DiversificationScore)

	// Correlated crypto + stock clusters draw a warning, and the missing
	// commodity sleeve draws an inflation-hedge recommendation.
	require.NotEmpty(t, assessment.Warnings)
	assert.Contains(t, assessment.Warnings[0], "correlated")
	found := false
	for _, rec := range assessment.Recommendations {
		if strings.Contains(rec, "inflation hedge") {
			found = true
		}
	}
	assert.True(t, found, "expected a commodity exposure recommendation")
}

func TestAssessSingleClassScoresZero(t *testing.T) {
	results := []*router.Result{
		result("AAPL", market.AssetStock, market.SignalHold, router.RiskLevelLow),
		result("MSFT", market.AssetStock, market.SignalHold, router.RiskLevelLow),
	}

	assessment := NewAggregator().Assess(results, nil)
	assert.Equal(t, 0, assessment.DiversificationScore)
}

func TestAssessEvenFiveWaySplit(t *testing.T) {
	results := []*router.Result{
		result("AAPL", market.AssetStock, market.SignalHold, router.RiskLevelLow),
		result("BTCUSDT", market.AssetCrypto, market.SignalHold, router.RiskLevelLow),
		result("EURUSD", market.AssetForex, market.SignalHold, router.RiskLevelLow),
		result("GC=F", market.AssetCommodity, market.SignalHold, router.RiskLevelLow),
		result("AAPL240621C00190000", market.AssetOptions, market.SignalHold, router.RiskLevelLow),
	}

	assessment := NewAggregator().Assess(results, nil)
	assert.Equal(t, 80, assessment.DiversificationScore, "five-way even split: 1 - 5 x 0.2^2")
}

func TestAssessEmptyPortfolio(t *testing.T) {
	assessment := NewAggregator().Assess(nil, nil)

	assert.Equal(t, 0, assessment.TotalAssets)
	assert.Equal(t, 0, assessment.DiversificationScore)
	assert.Equal(t, router.RiskLevelLow, assessment.OverallRisk)
	assert.Empty(t, assessment.Recommendations)
}

func TestAssessRiskEscalation(t *testing.T) {
	mostlyRisky := []*router.Result{
		result("A", market.AssetStock, market.SignalHold, router.RiskLevelHigh),
		result("B", market.AssetStock, market.SignalHold, router.RiskLevelExtreme),
		result("C", market.AssetStock, market.SignalHold, router.RiskLevelHigh),
		result("D", market.AssetStock, market.SignalHold, router.RiskLevelLow),
	}
	assessment := NewAggregator().Assess(mostlyRisky, nil)
	assert.Equal(t, router.RiskLevelHigh, assessment.OverallRisk)

	allRisky := mostlyRisky[:3]
	assessment = NewAggregator().Assess(allRisky, nil)
	assert.Equal(t, router.RiskLevelExtreme, assessment.OverallRisk)

	calm := []*router.Result{
		result("A", market.AssetStock, market.SignalHold, router.RiskLevelLow),
		result("B", market.AssetCrypto, market.SignalHold, router.RiskLevelLow),
	}
	assessment = NewAggregator().Assess(calm, nil)
	assert.Equal(t, router.RiskLevelLow, assessment.OverallRisk)
}

func TestAssessKillSwitchOverridesSignals(t *testing.T) {
	results := []*router.Result{
		result("AAPL", market.AssetStock, market.SignalBuy, router.RiskLevelLow),
		result("BTCUSDT", market.AssetCrypto, market.SignalStrongBuy, router.RiskLevelMedium),
	}

	ks := &risk.KillSwitchStatus{
		Triggered:         true,
		Severity:          risk.SeverityEmergency,
		RecommendedAction: "liquidate risk assets and move to cash",
	}

	assessment := NewAggregator().Assess(results, ks)

	require.NotNil(t, assessment.KillSwitch)
	for _, r := range assessment.Results {
		assert.Equal(t, market.SignalStrongSell, r.Signal, "emergency forces liquidation signals")
		assert.Contains(t, r.Recommendation, "kill switch")
	}
	assert.Contains(t, assessment.Warnings[len(assessment.Warnings)-1], "kill switch")

	// The caller's results are untouched.
	assert.Equal(t, market.SignalBuy, results[0].Signal)
	assert.Equal(t, market.SignalStrongBuy, results[1].Signal)
}

func TestAssessKillSwitchNeutralizesSuggestedActions(t *testing.T) {
	buy := result("AAPL", market.AssetStock, market.SignalBuy, router.RiskLevelLow)
	buy.Recommendation = "buy 25 units"
	buy.Decision = &consensus.Decision{
		Symbol: "AAPL",
		Signal: market.SignalBuy,
		SuggestedAction: consensus.SuggestedAction{
			Side: "buy", Quantity: 25, StopLoss: 95, TakeProfit: 110, Urgency: agents.UrgencyNormal,
		},
	}
	sell := result("BTCUSDT", market.AssetCrypto, market.SignalSell, router.RiskLevelMedium)
	sell.Decision = &consensus.Decision{
		Symbol: "BTCUSDT",
		Signal: market.SignalSell,
		SuggestedAction: consensus.SuggestedAction{
			Side: "sell", Quantity: 2, Urgency: agents.UrgencyLow,
		},
	}

	ks := &risk.KillSwitchStatus{
		Triggered:         true,
		Severity:          risk.SeverityEmergency,
		ExposureReduction: 1.0,
		RecommendedAction: "liquidate risk assets and move to cash",
	}

	assessment := NewAggregator().Assess([]*router.Result{buy, sell}, ks)

	// The buy is cancelled outright: no residual quantity or levels from
	// the pre-trigger plan anywhere in the overridden result.
	got := assessment.Results[0]
	assert.Equal(t, market.SignalStrongSell, got.Signal)
	assert.Equal(t, market.SignalStrongSell, got.Decision.Signal)
	assert.Equal(t, "sell", got.Decision.SuggestedAction.Side)
	assert.Zero(t, got.Decision.SuggestedAction.Quantity)
	assert.Zero(t, got.Decision.SuggestedAction.StopLoss)
	assert.Zero(t, got.Decision.SuggestedAction.TakeProfit)
	assert.Equal(t, agents.UrgencyHigh, got.Decision.SuggestedAction.Urgency)
	assert.Contains(t, got.Recommendation, "liquidate")

	// The sell keeps its sizing but gains urgency.
	got = assessment.Results[1]
	assert.Equal(t, "sell", got.Decision.SuggestedAction.Side)
	assert.Equal(t, 2.0, got.Decision.SuggestedAction.Quantity)
	assert.Equal(t, agents.UrgencyHigh, got.Decision.SuggestedAction.Urgency)

	// The caller's decisions are untouched.
	assert.Equal(t, "buy", buy.Decision.SuggestedAction.Side)
	assert.Equal(t, 25.0, buy.Decision.SuggestedAction.Quantity)
	assert.Equal(t, "buy 25 units", buy.Recommendation)
}
