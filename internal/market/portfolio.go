package market

import "fmt"

// RiskTolerance tiers the sizing and stop-loss policy.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

// Valid reports whether t is a supported tolerance tier.
func (t RiskTolerance) Valid() bool {
	switch t {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// Position is the caller's current holding in the analyzed instrument.
type Position struct {
	Quantity      float64 `json:"quantity"`
	AvgPrice      float64 `json:"avg_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// PortfolioContext is the per-decision account state. Supplied by the
// caller and never mutated by the engine.
type PortfolioContext struct {
	Position        Position      `json:"position"`
	TotalValue      float64       `json:"total_value"`
	AvailableCash   float64       `json:"available_cash"`
	RiskTolerance   RiskTolerance `json:"risk_tolerance"`
	MaxDrawdown     float64       `json:"max_drawdown"`     // drawdown limit, fractional
	CurrentDrawdown float64       `json:"current_drawdown"` // fractional
}

// Validate checks the caller contract for mandatory portfolio fields.
func (p *PortfolioContext) Validate() error {
	if p == nil {
		return fmt.Errorf("portfolio context is nil")
	}
	if p.TotalValue <= 0 {
		return fmt.Errorf("portfolio total value must be positive, got %f", p.TotalValue)
	}
	if p.AvailableCash < 0 {
		return fmt.Errorf("available cash must be non-negative, got %f", p.AvailableCash)
	}
	if !p.RiskTolerance.Valid() {
		return fmt.Errorf("unknown risk tolerance %q", p.RiskTolerance)
	}
	if p.CurrentDrawdown < 0 || p.CurrentDrawdown > 1 {
		return fmt.Errorf("current drawdown must be within [0,1], got %f", p.CurrentDrawdown)
	}
	return nil
}
