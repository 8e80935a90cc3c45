package risk

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/metrics"
)

// Kill-switch severities.
const (
	SeverityWarning   = "warning"
	SeverityCritical  = "critical"
	SeverityEmergency = "emergency"
)

// KillSwitchConfig holds the portfolio-wide risk monitor thresholds.
type KillSwitchConfig struct {
	Z95                float64 `mapstructure:"z_95"`                // 1.645
	Z99                float64 `mapstructure:"z_99"`                // 2.326
	ShortfallMultiple  float64 `mapstructure:"shortfall_multiple"`  // ES ~ 1.2 x VaR99
	VaRBudget          float64 `mapstructure:"var_budget"`          // VaR99/value normalized against 0.15
	VaRWeight          float64 `mapstructure:"var_weight"`          // 0.4
	FearWeight         float64 `mapstructure:"fear_weight"`         // 0.35
	TriggerThreshold   float64 `mapstructure:"trigger_threshold"`   // 0.7
	CriticalThreshold  float64 `mapstructure:"critical_threshold"`  // 0.6
	EmergencyThreshold float64 `mapstructure:"emergency_threshold"` // 0.8
	HorizonDays        float64 `mapstructure:"horizon_days"`        // 1
	SkewBaseline       float64 `mapstructure:"skew_baseline"`       // IV skew above this reads as fear
	VIXBaseline        float64 `mapstructure:"vix_baseline"`        // VIX above this reads as fear
}

// DefaultKillSwitchConfig returns the default monitor thresholds.
func DefaultKillSwitchConfig() KillSwitchConfig {
	return KillSwitchConfig{
		Z95:                1.645,
		Z99:                2.326,
		ShortfallMultiple:  1.2,
		VaRBudget:          0.15,
		VaRWeight:          0.4,
		FearWeight:         0.35,
		TriggerThreshold:   0.7,
		CriticalThreshold:  0.6,
		EmergencyThreshold: 0.8,
		HorizonDays:        1,
		SkewBaseline:       1.0,
		VIXBaseline:        20,
	}
}

// PositionExposure is one holding's contribution to portfolio risk.
type PositionExposure struct {
	Symbol     string  `json:"symbol"`
	Value      float64 `json:"value"`
	Volatility float64 `json:"volatility"` // daily, fractional
}

// OptionsMarketData carries the implied-volatility fear inputs.
type OptionsMarketData struct {
	AvgIVSkew float64 `json:"avg_iv_skew"` // put/call IV ratio; >1 means downside protection bid
	VIX       float64 `json:"vix"`
}

// KillSwitchStatus is the monitor's verdict.
type KillSwitchStatus struct {
	Triggered         bool     `json:"triggered"`
	Severity          string   `json:"severity"`
	RecommendedAction string   `json:"recommended_action"`
	ExposureReduction float64  `json:"exposure_reduction"` // fraction of exposure to shed
	AffectedAssets    []string `json:"affected_assets"`
}

// KillSwitchMetrics exposes the intermediate numbers for explainability.
type KillSwitchMetrics struct {
	PortfolioValue     float64 `json:"portfolio_value"`
	WeightedVolatility float64 `json:"weighted_volatility"`
	VaR95              float64 `json:"var_95"`
	VaR99              float64 `json:"var_99"`
	ExpectedShortfall  float64 `json:"expected_shortfall"`
	FearLevel          float64 `json:"fear_level"`
	OverallRiskScore   float64 `json:"overall_risk_score"`
}

// KillSwitch is the independent portfolio-wide risk monitor. It runs
// beside the per-asset pipelines and, when triggered, its status must be
// applied as a final defensive override on every decision.
type KillSwitch struct {
	cfg KillSwitchConfig
	log zerolog.Logger
}

// NewKillSwitch creates the monitor with the given thresholds.
func NewKillSwitch(cfg KillSwitchConfig) *KillSwitch {
	return &KillSwitch{
		cfg: cfg,
		log: log.With().Str("component", "kill_switch").Logger(),
	}
}

// Evaluate computes parametric VaR and the volatility-skew fear signal
// over current positions and combines them into one risk score.
func (k *KillSwitch) Evaluate(positions []PositionExposure, options *OptionsMarketData, historicalReturns []float64) (KillSwitchStatus, KillSwitchMetrics) {
	portfolioValue := 0.0
	weightedVol := 0.0
	for _, p := range positions {
		portfolioValue += p.Value
		weightedVol += p.Value * p.Volatility
	}
	if portfolioValue > 0 {
		weightedVol /= portfolioValue
	}
	// Fall back to realized volatility when positions carry no vol
	// estimate of their own.
	if weightedVol == 0 && len(historicalReturns) > 1 {
		weightedVol = sampleStdDev(historicalReturns)
	}

	horizon := math.Sqrt(k.cfg.HorizonDays)
	var95 := portfolioValue * weightedVol * k.cfg.Z95 * horizon
	var99 := portfolioValue * weightedVol * k.cfg.Z99 * horizon
	shortfall := var99 * k.cfg.ShortfallMultiple

	fear := k.fearLevel(options)

	varComponent := 0.0
	if portfolioValue > 0 {
		varComponent = math.Min(1, (var99/portfolioValue)/k.cfg.VaRBudget)
	}
	score := varComponent*k.cfg.VaRWeight + fear*k.cfg.FearWeight

	severity := SeverityWarning
	switch {
	case score > k.cfg.EmergencyThreshold:
		severity = SeverityEmergency
	case score > k.cfg.CriticalThreshold:
		severity = SeverityCritical
	}

	status := KillSwitchStatus{
		Triggered: score > k.cfg.TriggerThreshold,
		Severity:  severity,
	}
	status.RecommendedAction, status.ExposureReduction = k.recommendation(status.Triggered, severity)
	status.AffectedAssets = k.affectedAssets(positions, weightedVol)

	report := KillSwitchMetrics{
		PortfolioValue:     portfolioValue,
		WeightedVolatility: weightedVol,
		VaR95:              var95,
		VaR99:              var99,
		ExpectedShortfall:  shortfall,
		FearLevel:          fear,
		OverallRiskScore:   score,
	}

	metrics.KillSwitchScore.Set(score)
	metrics.PortfolioVaR.WithLabelValues("95").Set(var95)
	metrics.PortfolioVaR.WithLabelValues("99").Set(var99)
	if status.Triggered {
		metrics.KillSwitchTriggers.WithLabelValues(severity).Inc()
	}

	event := k.log.Debug()
	if status.Triggered {
		event = k.log.Warn()
	}
	event.
		Float64("risk_score", score).
		Float64("var_99", var99).
		Float64("fear", fear).
		Str("severity", severity).
		Bool("triggered", status.Triggered).
		Msg("Kill switch evaluated")

	return status, report
}

// fearLevel blends IV skew above baseline with VIX above baseline,
// 60/40, clamped to [0,1].
func (k *KillSwitch) fearLevel(options *OptionsMarketData) float64 {
	if options == nil {
		return 0
	}
	skewComponent := clamp01((options.AvgIVSkew - k.cfg.SkewBaseline) * 2)
	vixComponent := clamp01((options.VIX - k.cfg.VIXBaseline) / k.cfg.VIXBaseline)
	return clamp01(skewComponent*0.6 + vixComponent*0.4)
}

func (k *KillSwitch) recommendation(triggered bool, severity string) (string, float64) {
	if !triggered {
		return "continue monitoring", 0
	}
	switch severity {
	case SeverityEmergency:
		return "liquidate risk assets and move to cash", 0.5
	case SeverityCritical:
		return "reduce exposure and halt new entries", 0.3
	default:
		return "tighten stops and avoid adding risk", 0.1
	}
}

// affectedAssets names the positions carrying outsized volatility.
func (k *KillSwitch) affectedAssets(positions []PositionExposure, weightedVol float64) []string {
	threshold := math.Max(weightedVol*1.5, 0.05)
	var affected []string
	for _, p := range positions {
		if p.Volatility >= threshold {
			affected = append(affected, p.Symbol)
		}
	}
	return affected
}

// Override applies the kill switch to a decision signal. Triggered status
// forces a defensive bias on top of whatever the pipeline recommended:
// emergency liquidation reads strong_sell, any other trigger forces at
// least sell.
func (s KillSwitchStatus) Override(sig market.Signal) market.Signal {
	if !s.Triggered {
		return sig
	}
	if s.Severity == SeverityEmergency {
		return market.SignalStrongSell
	}
	if sig.Score() >= 0 {
		return market.SignalSell
	}
	return sig
}

func sampleStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	if len(values) > 1 {
		variance /= float64(len(values) - 1)
	} else {
		variance /= float64(len(values))
	}
	return math.Sqrt(variance)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
