package market

import (
	"fmt"
	"time"
)

// AssetClass identifies which per-class analysis pipeline handles an
// instrument.
type AssetClass string

const (
	AssetStock     AssetClass = "stock"
	AssetCrypto    AssetClass = "crypto"
	AssetOptions   AssetClass = "options"
	AssetForex     AssetClass = "forex"
	AssetCommodity AssetClass = "commodity"
)

// AssetClasses lists every supported class in deterministic order.
var AssetClasses = []AssetClass{AssetStock, AssetCrypto, AssetOptions, AssetForex, AssetCommodity}

// Valid reports whether c is a supported asset class.
func (c AssetClass) Valid() bool {
	for _, known := range AssetClasses {
		if c == known {
			return true
		}
	}
	return false
}

// Candle is a single OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MACDValue carries the MACD line, its signal line, and the histogram.
type MACDValue struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// IndicatorBundle holds precomputed technical indicators. All fields are
// point-in-time values for the most recent bar.
type IndicatorBundle struct {
	RSI            float64   `json:"rsi"`
	MACD           MACDValue `json:"macd"`
	EMA8           float64   `json:"ema_8"`
	EMA21          float64   `json:"ema_21"`
	EMA50          float64   `json:"ema_50"`
	EMA200         float64   `json:"ema_200"`
	BollingerUpper float64   `json:"bollinger_upper"`
	BollingerMid   float64   `json:"bollinger_mid"`
	BollingerLower float64   `json:"bollinger_lower"`
	ATR            float64   `json:"atr"`
}

// FundamentalsBundle holds valuation and growth figures for equities.
type FundamentalsBundle struct {
	PERatio       float64 `json:"pe_ratio"`
	PBRatio       float64 `json:"pb_ratio"`
	PEGRatio      float64 `json:"peg_ratio"`
	RevenueGrowth float64 `json:"revenue_growth"` // year over year, fractional
	ProfitMargin  float64 `json:"profit_margin"`
	DebtToEquity  float64 `json:"debt_to_equity"`
	DividendYield float64 `json:"dividend_yield"`
}

// SentimentBundle holds aggregated news/social sentiment readings.
type SentimentBundle struct {
	NewsScore          float64 `json:"news_score"`   // -1..1
	SocialScore        float64 `json:"social_score"` // -1..1
	FearGreedIndex     float64 `json:"fear_greed_index"` // 0..100
	SocialVolumeChange float64 `json:"social_volume_change"` // fractional day-over-day
}

// OnChainBundle holds on-chain flow metrics for crypto assets.
type OnChainBundle struct {
	ExchangeInflow      float64 `json:"exchange_inflow"`
	ExchangeOutflow     float64 `json:"exchange_outflow"`
	ExchangeSupplyRatio float64 `json:"exchange_supply_ratio"` // fraction of supply held on exchanges
	ActiveAddressChange float64 `json:"active_address_change"` // fractional day-over-day
	WhaleTxCount        int     `json:"whale_tx_count"`
}

// MacroBundle holds rate and supply inputs for forex and commodity
// pipelines.
type MacroBundle struct {
	BaseRate             float64 `json:"base_rate"`  // base currency policy rate
	QuoteRate            float64 `json:"quote_rate"` // quote currency policy rate
	CentralBankBias      float64 `json:"central_bank_bias"` // -1 dovish .. 1 hawkish, base minus quote
	InventoryChange      float64 `json:"inventory_change"`  // fractional week-over-week
	SupplyDisruptionRisk float64 `json:"supply_disruption_risk"` // 0..1
}

// QuoteStats holds spread and volume figures used for execution-quality
// timing advice.
type QuoteStats struct {
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	LastVolume float64 `json:"last_volume"`
	AvgVolume  float64 `json:"avg_volume"`
}

// MarketSnapshot is the immutable input to one decision cycle. It is owned
// by the caller; the engine never mutates it. Every bundle is optional:
// agents answer data gaps with a neutral low-confidence result rather than
// an error.
type MarketSnapshot struct {
	Symbol       string              `json:"symbol"`
	Class        AssetClass          `json:"class,omitempty"` // explicit override; empty means classify from symbol
	Price        float64             `json:"price"`
	Candles      []Candle            `json:"candles,omitempty"`
	Indicators   *IndicatorBundle    `json:"indicators,omitempty"`
	Fundamentals *FundamentalsBundle `json:"fundamentals,omitempty"`
	Sentiment    *SentimentBundle    `json:"sentiment,omitempty"`
	OnChain      *OnChainBundle      `json:"on_chain,omitempty"`
	Macro        *MacroBundle        `json:"macro,omitempty"`
	Quote        *QuoteStats         `json:"quote,omitempty"`
}

// Validate checks the caller contract. A failure here is a configuration
// error and propagates; market-driven gaps never reach this path.
func (s *MarketSnapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if s.Symbol == "" {
		return fmt.Errorf("snapshot symbol is required")
	}
	if s.Price <= 0 {
		return fmt.Errorf("snapshot price must be positive, got %f", s.Price)
	}
	if s.Class != "" && !s.Class.Valid() {
		return fmt.Errorf("unknown asset class %q", s.Class)
	}
	return nil
}
