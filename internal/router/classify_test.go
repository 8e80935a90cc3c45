package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfuse/quantfuse/internal/market"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		symbol string
		want   market.AssetClass
	}{
		// Stocks (the fallback class)
		{"AAPL", market.AssetStock},
		{"MSFT", market.AssetStock},
		{"BRK-B", market.AssetStock},

		// Crypto by quote suffix
		{"BTCUSDT", market.AssetCrypto},
		{"ETH-USDC", market.AssetCrypto},
		{"DOGEBUSD", market.AssetCrypto},
		// Crypto by USD-quoted allow-listed base
		{"BTC-USD", market.AssetCrypto},
		{"SOL/USD", market.AssetCrypto},
		// Bare crypto base
		{"ETH", market.AssetCrypto},

		// OCC option contracts
		{"AAPL240621C00190000", market.AssetOptions},
		{"SPY250117P00450000", market.AssetOptions},

		// Forex majors
		{"EURUSD", market.AssetForex},
		{"EUR/USD", market.AssetForex},
		{"GBP_JPY", market.AssetForex},

		// Commodities
		{"GC=F", market.AssetCommodity},
		{"cl=f", market.AssetCommodity},
		{"SI", market.AssetCommodity},
		{"NG", market.AssetCommodity},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := Classify(tt.symbol, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyOverride(t *testing.T) {
	// A valid override wins over symbol heuristics.
	got, err := Classify("AAPL", market.AssetCrypto)
	require.NoError(t, err)
	assert.Equal(t, market.AssetCrypto, got)

	// An unknown override is a configuration error.
	_, err = Classify("AAPL", "bond")
	assert.Error(t, err)
}

func TestClassifyEmptySymbol(t *testing.T) {
	_, err := Classify("", "")
	assert.Error(t, err)
}

func TestClassifyUSDSuffixNeedsAllowListedBase(t *testing.T) {
	// A USD suffix alone does not make a crypto pair.
	got, err := Classify("FAKEUSD", "")
	require.NoError(t, err)
	assert.Equal(t, market.AssetStock, got)
}
