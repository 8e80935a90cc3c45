// Package risk implements the two veto authorities of the engine: the
// per-decision RiskGate, which can block or shrink any proposed trade, and
// the portfolio-wide KillSwitch, which can force a defensive override on
// top of whatever the consensus stage decided.
package risk

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/market"
)

// GateConfig holds the product-tuned gate thresholds. Values are
// preserved as configuration defaults, not re-derived.
type GateConfig struct {
	MaxDrawdownLimit    float64 `mapstructure:"max_drawdown_limit"`    // 0.20
	DrawdownRejectRatio float64 `mapstructure:"drawdown_reject_ratio"` // reject at 0.8 x limit
	MaxPositionSize     float64 `mapstructure:"max_position_size"`     // 0.10 of portfolio value
	VolatilityThreshold float64 `mapstructure:"volatility_threshold"`  // ATR/price above this throttles
	VolatilityThrottle  float64 `mapstructure:"volatility_throttle"`   // quantity multiplier when throttled
	TakeProfitRatio     float64 `mapstructure:"take_profit_ratio"`     // fixed 2:1 reward:risk
}

// DefaultGateConfig returns the default gate thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxDrawdownLimit:    0.20,
		DrawdownRejectRatio: 0.8,
		MaxPositionSize:     0.10,
		VolatilityThreshold: 0.05,
		VolatilityThrottle:  0.7,
		TakeProfitRatio:     2.0,
	}
}

// toleranceMultiplier scales quantity by risk tolerance. Moderate and
// aggressive pass through unchanged.
func toleranceMultiplier(t market.RiskTolerance) float64 {
	if t == market.RiskConservative {
		return 0.5
	}
	return 1.0
}

// stopLossPercent tiers the protective stop by risk tolerance.
func stopLossPercent(t market.RiskTolerance) float64 {
	switch t {
	case market.RiskConservative:
		return 0.03
	case market.RiskAggressive:
		return 0.08
	default:
		return 0.05
	}
}

// ProposedAction is the tentative trade the consensus stage derived before
// risk review.
type ProposedAction struct {
	Side     string  `json:"side"` // buy, sell, hold
	Quantity float64 `json:"quantity"`
}

// Verdict is the gate's ruling. AdjustedQuantity is always within
// [0, proposed]; Approved=false forces the final decision to hold with
// zero quantity regardless of the upstream signal.
type Verdict struct {
	Approved         bool    `json:"approved"`
	AdjustedQuantity float64 `json:"adjusted_quantity"`
	StopLoss         float64 `json:"stop_loss"`
	TakeProfit       float64 `json:"take_profit"`
	Reasoning        string  `json:"reasoning"`
	Confidence       int     `json:"confidence"`
}

// Gate applies the risk policy chain. Every step only shrinks or blocks
// the action, never grows it.
type Gate struct {
	cfg GateConfig
	log zerolog.Logger
}

// NewGate creates a risk gate with the given thresholds.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		cfg: cfg,
		log: log.With().Str("component", "risk_gate").Logger(),
	}
}

// Evaluate reviews a proposed action against portfolio state. It never
// returns an error: rejection is a verdict, not a failure.
func (g *Gate) Evaluate(snap *market.MarketSnapshot, portfolio *market.PortfolioContext, action ProposedAction) Verdict {
	limit := portfolio.MaxDrawdown
	if limit <= 0 {
		limit = g.cfg.MaxDrawdownLimit
	}

	// Step 1: drawdown brake. Approaching the limit blocks everything.
	if portfolio.CurrentDrawdown >= g.cfg.DrawdownRejectRatio*limit {
		reason := fmt.Sprintf("drawdown %.1f%% at or above %.0f%% of the %.0f%% limit, rejecting trade",
			portfolio.CurrentDrawdown*100, g.cfg.DrawdownRejectRatio*100, limit*100)
		g.log.Warn().Str("symbol", snap.Symbol).Float64("drawdown", portfolio.CurrentDrawdown).Msg("Risk gate rejected trade")
		return Verdict{Approved: false, AdjustedQuantity: 0, Reasoning: reason, Confidence: 90}
	}

	quantity := action.Quantity
	if quantity < 0 {
		quantity = 0
	}
	confidence := 85
	var notes []string

	if action.Side == "buy" || action.Side == "sell" {
		// Step 2: position-size cap as a fraction of portfolio value.
		if maxQuantity := g.cfg.MaxPositionSize * portfolio.TotalValue / snap.Price; quantity > maxQuantity {
			quantity = maxQuantity
			confidence -= 5
			notes = append(notes, fmt.Sprintf("capped to %.0f%% position size", g.cfg.MaxPositionSize*100))
		}

		// Step 3: buys cannot exceed available cash.
		if action.Side == "buy" {
			if affordable := portfolio.AvailableCash / snap.Price; quantity > affordable {
				quantity = affordable
				confidence -= 5
				notes = append(notes, "capped to available cash")
			}
		}

		// Step 4: volatility throttle.
		if snap.Indicators != nil && snap.Price > 0 {
			if atrPct := snap.Indicators.ATR / snap.Price; atrPct > g.cfg.VolatilityThreshold {
				quantity *= g.cfg.VolatilityThrottle
				confidence -= 5
				notes = append(notes, fmt.Sprintf("volatility %.1f%% of price, throttled to %.0f%%", atrPct*100, g.cfg.VolatilityThrottle*100))
			}
		}

		// Step 5: risk-tolerance multiplier.
		if mult := toleranceMultiplier(portfolio.RiskTolerance); mult != 1.0 {
			quantity *= mult
			notes = append(notes, fmt.Sprintf("%s tolerance scales quantity by %.1f", portfolio.RiskTolerance, mult))
		}
	}

	// Step 6: protective levels from the tolerance tier, fixed 2:1
	// reward:risk.
	slPct := stopLossPercent(portfolio.RiskTolerance)
	tpPct := slPct * g.cfg.TakeProfitRatio
	var stopLoss, takeProfit float64
	switch action.Side {
	case "buy":
		stopLoss = snap.Price * (1 - slPct)
		takeProfit = snap.Price * (1 + tpPct)
	case "sell":
		stopLoss = snap.Price * (1 + slPct)
		takeProfit = snap.Price * (1 - tpPct)
	}

	if len(notes) == 0 {
		notes = append(notes, "within risk limits")
	}

	g.log.Debug().
		Str("symbol", snap.Symbol).
		Str("side", action.Side).
		Float64("proposed", action.Quantity).
		Float64("adjusted", quantity).
		Msg("Risk gate approved trade")

	return Verdict{
		Approved:         true,
		AdjustedQuantity: quantity,
		StopLoss:         stopLoss,
		TakeProfit:       takeProfit,
		Reasoning:        strings.Join(notes, "; "),
		Confidence:       confidence,
	}
}
