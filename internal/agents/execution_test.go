package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantfuse/quantfuse/internal/market"
)

func TestExecutionNeverDirectional(t *testing.T) {
	tests := []struct {
		name        string
		quote       *market.QuoteStats
		wantUrgency string
	}{
		{
			name:        "tight spread and heavy volume",
			quote:       &market.QuoteStats{Bid: 99.99, Ask: 100.00, LastVolume: 2000, AvgVolume: 1000},
			wantUrgency: UrgencyHigh,
		},
		{
			name:        "wide spread",
			quote:       &market.QuoteStats{Bid: 99.0, Ask: 100.0, LastVolume: 1000, AvgVolume: 1000},
			wantUrgency: UrgencyLow,
		},
		{
			name:        "thin volume",
			quote:       &market.QuoteStats{Bid: 99.9, Ask: 100.0, LastVolume: 300, AvgVolume: 1000},
			wantUrgency: UrgencyLow,
		},
		{
			name:        "normal conditions",
			quote:       &market.QuoteStats{Bid: 99.9, Ask: 100.0, LastVolume: 1000, AvgVolume: 1000},
			wantUrgency: UrgencyNormal,
		},
	}

	agent := NewExecutionQuality()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &market.MarketSnapshot{Symbol: "AAPL", Price: 100, Quote: tt.quote}
			analysis := agent.Analyze(context.Background(), snap)

			assert.Equal(t, market.SignalHold, analysis.Signal, "execution advice is never directional")
			assert.Equal(t, tt.wantUrgency, analysis.Urgency)
		})
	}
}

func TestExecutionMissingQuote(t *testing.T) {
	snap := &market.MarketSnapshot{Symbol: "AAPL", Price: 100}
	analysis := NewExecutionQuality().Analyze(context.Background(), snap)

	assert.Equal(t, market.SignalHold, analysis.Signal)
	assert.Equal(t, UrgencyNormal, analysis.Urgency)
	assert.Equal(t, insufficientConfidence, analysis.Confidence)
}

func TestFundamentalCheapGrower(t *testing.T) {
	snap := &market.MarketSnapshot{
		Symbol: "AAPL",
		Price:  100,
		Fundamentals: &market.FundamentalsBundle{
			PERatio:       12,
			PEGRatio:      0.8,
			RevenueGrowth: 0.25,
			ProfitMargin:  0.28,
		},
	}

	analysis := NewFundamental().Analyze(context.Background(), snap)

	assert.Equal(t, market.SignalStrongBuy, analysis.Signal)
	assert.GreaterOrEqual(t, analysis.Confidence, 80)
}

func TestFundamentalStretchedAndLevered(t *testing.T) {
	snap := &market.MarketSnapshot{
		Symbol: "XYZ",
		Price:  100,
		Fundamentals: &market.FundamentalsBundle{
			PERatio:       55,
			PEGRatio:      2.5,
			RevenueGrowth: -0.15,
			DebtToEquity:  3.1,
		},
	}

	analysis := NewFundamental().Analyze(context.Background(), snap)

	assert.Equal(t, market.SignalStrongSell, analysis.Signal)
}

func TestFundamentalMissingBundle(t *testing.T) {
	snap := &market.MarketSnapshot{Symbol: "AAPL", Price: 100}
	analysis := NewFundamental().Analyze(context.Background(), snap)

	assert.Equal(t, market.SignalHold, analysis.Signal)
	assert.Equal(t, insufficientConfidence, analysis.Confidence)
}

func TestAgentTypeValid(t *testing.T) {
	for _, typ := range Types {
		assert.True(t, typ.Valid())
	}
	assert.False(t, Type("astrology").Valid())
}
