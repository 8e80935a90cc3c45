package router

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/consensus"
	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/metrics"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/weights"
)

// Risk levels reported on normalized results.
const (
	RiskLevelLow     = "low"
	RiskLevelMedium  = "medium"
	RiskLevelHigh    = "high"
	RiskLevelExtreme = "extreme"
)

// Result is the asset-class-normalized wrapper around a consensus
// decision: every class pipeline produces this same shape.
type Result struct {
	Symbol         string             `json:"symbol"`
	Class          market.AssetClass  `json:"class"`
	Signal         market.Signal      `json:"signal"`
	Confidence     int                `json:"confidence"`
	RiskLevel      string             `json:"risk_level"`
	Analyses       []agents.Analysis  `json:"analyses"`
	KeyMetrics     map[string]float64 `json:"key_metrics"`
	Recommendation string             `json:"recommendation"`
	Decision       *consensus.Decision `json:"decision"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Router owns one consensus engine per asset class. Engines differ only
// in their agent sets; the fusion contract is shared.
type Router struct {
	engines map[market.AssetClass]*consensus.Engine
	byType  map[agents.Type]agents.Agent
	log     zerolog.Logger
}

// New builds the per-class pipelines over a shared risk gate and weight
// store. Crypto swaps fundamentals for on-chain flow plus narrative/hype;
// forex swaps in carry/central-bank bias; commodity swaps in
// inventory/supply; options drop fundamentals entirely.
func New(gate *risk.Gate, store *weights.Store, cfg consensus.Config) *Router {
	technical := agents.NewTechnical()
	fundamental := agents.NewFundamental()
	sentiment := agents.NewSentiment()
	regime := agents.NewRegime()
	execution := agents.NewExecutionQuality()
	onChain := agents.NewOnChainFlow()
	narrative := agents.NewNarrativeHype()
	carry := agents.NewCarryBias()
	inventory := agents.NewInventorySupply()

	scored := func(a agents.Agent) consensus.AgentSpec { return consensus.AgentSpec{Agent: a, Scored: true} }
	advisory := func(a agents.Agent) consensus.AgentSpec { return consensus.AgentSpec{Agent: a, Scored: false} }

	engines := map[market.AssetClass]*consensus.Engine{
		market.AssetStock: consensus.NewEngine([]consensus.AgentSpec{
			scored(technical), scored(fundamental), scored(sentiment), scored(regime), advisory(execution),
		}, gate, store, cfg),
		market.AssetCrypto: consensus.NewEngine([]consensus.AgentSpec{
			scored(technical), scored(onChain), scored(narrative), scored(sentiment), scored(regime), advisory(execution),
		}, gate, store, cfg),
		market.AssetOptions: consensus.NewEngine([]consensus.AgentSpec{
			scored(technical), scored(sentiment), scored(regime), advisory(execution),
		}, gate, store, cfg),
		market.AssetForex: consensus.NewEngine([]consensus.AgentSpec{
			scored(technical), scored(carry), scored(sentiment), scored(regime), advisory(execution),
		}, gate, store, cfg),
		market.AssetCommodity: consensus.NewEngine([]consensus.AgentSpec{
			scored(technical), scored(inventory), scored(sentiment), scored(regime), advisory(execution),
		}, gate, store, cfg),
	}

	byType := map[agents.Type]agents.Agent{}
	for _, a := range []agents.Agent{technical, fundamental, sentiment, regime, execution, onChain, narrative, carry, inventory} {
		byType[a.Type()] = a
	}

	return &Router{
		engines: engines,
		byType:  byType,
		log:     log.With().Str("component", "asset_router").Logger(),
	}
}

// WithNarrator attaches the optional enrichment to every class pipeline.
func (r *Router) WithNarrator(n consensus.Narrator) *Router {
	for _, engine := range r.engines {
		engine.WithNarrator(n)
	}
	return r
}

// Route classifies a symbol without running an analysis.
func (r *Router) Route(symbol string, override market.AssetClass) (market.AssetClass, error) {
	return Classify(symbol, override)
}

// Analyze classifies the snapshot's instrument, runs the class pipeline,
// and normalizes the decision. Classification and validation failures are
// caller contract violations and propagate.
func (r *Router) Analyze(ctx context.Context, snap *market.MarketSnapshot, portfolio *market.PortfolioContext) (*Result, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	class, err := Classify(snap.Symbol, snap.Class)
	if err != nil {
		return nil, err
	}
	engine, ok := r.engines[class]
	if !ok {
		return nil, fmt.Errorf("no pipeline configured for asset class %q", class)
	}

	start := time.Now()
	decision, err := engine.Decide(ctx, snap, portfolio)
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(string(class), string(decision.Signal), float64(time.Since(start).Milliseconds()))
	if !decision.RiskApproved {
		metrics.RiskRejections.WithLabelValues(metrics.NormalizeRejectReason(decision.RiskVerdict.Reasoning)).Inc()
	}

	result := r.normalize(class, snap, decision)
	r.log.Debug().
		Str("symbol", snap.Symbol).
		Str("class", string(class)).
		Str("signal", string(result.Signal)).
		Str("risk_level", result.RiskLevel).
		Msg("Asset analysis complete")
	return result, nil
}

// AnalyzeAgent runs a single named agent variant against a snapshot. An
// unknown agent type is a configuration error.
func (r *Router) AnalyzeAgent(ctx context.Context, agentType agents.Type, snap *market.MarketSnapshot) (agents.Analysis, error) {
	if err := snap.Validate(); err != nil {
		return agents.Analysis{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	agent, ok := r.byType[agentType]
	if !ok {
		return agents.Analysis{}, fmt.Errorf("unknown agent type %q", agentType)
	}
	return agent.Analyze(ctx, snap), nil
}

// normalize wraps a decision into the asset-class-agnostic result shape.
func (r *Router) normalize(class market.AssetClass, snap *market.MarketSnapshot, decision *consensus.Decision) *Result {
	atrPct := 0.0
	if snap.Indicators != nil && snap.Price > 0 {
		atrPct = snap.Indicators.ATR / snap.Price
	}

	metrics := map[string]float64{
		"weighted_score": decision.WeightedScore,
		"avg_confidence": float64(decision.Confidence),
		"atr_pct":        atrPct,
		"buy_votes":      float64(decision.VoteBreakdown["buy"]),
		"sell_votes":     float64(decision.VoteBreakdown["sell"]),
		"hold_votes":     float64(decision.VoteBreakdown["hold"]),
	}

	return &Result{
		Symbol:         decision.Symbol,
		Class:          class,
		Signal:         decision.Signal,
		Confidence:     decision.Confidence,
		RiskLevel:      riskLevel(decision, atrPct),
		Analyses:       decision.Analyses,
		KeyMetrics:     metrics,
		Recommendation: recommendation(decision),
		Decision:       decision,
		CreatedAt:      decision.CreatedAt,
	}
}

// riskLevel grades the decision's risk from volatility and the gate
// verdict.
func riskLevel(decision *consensus.Decision, atrPct float64) string {
	switch {
	case !decision.RiskApproved && atrPct > 0.08:
		return RiskLevelExtreme
	case !decision.RiskApproved:
		return RiskLevelHigh
	case atrPct > 0.08:
		return RiskLevelHigh
	case atrPct > 0.04:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// recommendation renders a one-line human summary of the action.
func recommendation(decision *consensus.Decision) string {
	action := decision.SuggestedAction
	if !decision.RiskApproved {
		return fmt.Sprintf("stand aside: %s", decision.RiskVerdict.Reasoning)
	}
	switch action.Side {
	case "buy":
		return fmt.Sprintf("%s %.4f units, stop %.2f, target %.2f (%s urgency)",
			action.Side, action.Quantity, action.StopLoss, action.TakeProfit, action.Urgency)
	case "sell":
		return fmt.Sprintf("%s %.4f units, stop %.2f, target %.2f (%s urgency)",
			action.Side, action.Quantity, action.StopLoss, action.TakeProfit, action.Urgency)
	default:
		return "hold current position"
	}
}
