// Package consensus fuses independent agent analyses into one risk-gated,
// explainable decision. The engine is an explicit, constructible instance:
// it holds its agent set and a reference to the weight store, and shares
// no hidden state with engines for other symbols, so decisions for
// different instruments may run with arbitrary parallelism.
package consensus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/metrics"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/weights"
)

// AgentSpec pairs an agent with its scoring role. Advisory agents (the
// execution-quality variant) contribute reasoning and urgency but are
// excluded from the weighted score.
type AgentSpec struct {
	Agent  agents.Agent
	Scored bool
}

// Config holds the fusion thresholds and sizing policy.
type Config struct {
	AgentTimeout       time.Duration // per-agent budget; exceeded agents fall back to neutral
	StrongSellFraction float64       // fraction of position sold on strong_sell
	SellFraction       float64       // fraction of position sold on sell
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		AgentTimeout:       2 * time.Second,
		StrongSellFraction: 1.0,
		SellFraction:       0.5,
	}
}

// basePercent is the cash fraction committed per buy, before confidence
// scaling, tiered by risk tolerance.
func basePercent(t market.RiskTolerance) float64 {
	switch t {
	case market.RiskConservative:
		return 0.03
	case market.RiskAggressive:
		return 0.10
	default:
		return 0.05
	}
}

// SuggestedAction is the trade proposal handed to the execution layer.
type SuggestedAction struct {
	Side       string  `json:"side"` // buy, sell, hold
	Quantity   float64 `json:"quantity"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Urgency    string  `json:"urgency"`
}

// Decision is the engine's final output for one snapshot. Identical
// inputs (snapshot, portfolio, weight snapshot) produce identical
// decisions apart from the timestamps.
type Decision struct {
	// ID is fresh per call. Like CreatedAt it is excluded from the
	// repeatability contract: identical inputs repeat every other field.
	ID              string         `json:"id"`
	Symbol          string         `json:"symbol"`
	Signal          market.Signal  `json:"signal"`
	Confidence      int            `json:"confidence"`     // 0..100
	WeightedScore   float64        `json:"weighted_score"` // avg score the signal was derived from
	Analyses        []agents.Analysis `json:"analyses"` // deterministic agent order
	RiskApproved    bool           `json:"risk_approved"`
	RiskVerdict     risk.Verdict   `json:"risk_verdict"`
	Reasoning       string         `json:"reasoning"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	VoteBreakdown   map[string]int `json:"vote_breakdown"`
	Narrative       string         `json:"narrative,omitempty"` // optional enrichment, never part of the core decision
	CreatedAt       time.Time      `json:"created_at"`
}

// Narrator is the optional enrichment side-channel. Failures are
// swallowed: the decision is complete without it.
type Narrator interface {
	Narrate(ctx context.Context, decision *Decision) (string, error)
}

// Engine fans analyses out, fuses them by adaptive weight, and passes the
// tentative action through the risk gate.
type Engine struct {
	specs    []AgentSpec
	gate     *risk.Gate
	store    *weights.Store
	cfg      Config
	narrator Narrator
	log      zerolog.Logger
}

// NewEngine creates a consensus engine over an ordered agent set. The
// spec order is the deterministic order analyses appear in the decision.
func NewEngine(specs []AgentSpec, gate *risk.Gate, store *weights.Store, cfg Config) *Engine {
	return &Engine{
		specs: specs,
		gate:  gate,
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "consensus_engine").Logger(),
	}
}

// WithNarrator attaches the optional narrative enrichment.
func (e *Engine) WithNarrator(n Narrator) *Engine {
	e.narrator = n
	return e
}

// Decide runs the full pipeline: concurrent fan-out, weighted fusion,
// sizing, risk gate, reasoning assembly. It fails only on caller
// contract violations; market conditions degrade to a conservative hold.
func (e *Engine) Decide(ctx context.Context, snap *market.MarketSnapshot, portfolio *market.PortfolioContext) (*Decision, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if err := portfolio.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio context: %w", err)
	}
	if len(e.specs) == 0 {
		return nil, fmt.Errorf("engine has no agents configured")
	}

	// One immutable weight snapshot per decision keeps aggregation
	// deterministic even while the tracker adapts weights concurrently.
	weightSnap := e.store.Snapshot()

	// Fan-out: all agents run independently; the barrier waits for every
	// one. Agents never error, so the group exists purely for the
	// fan-in and context plumbing.
	analyses := make([]agents.Analysis, len(e.specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range e.specs {
		i, spec := i, spec
		g.Go(func() error {
			analyses[i] = e.analyzeWithTimeout(gctx, spec.Agent, snap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Weighted fusion over the scored agents.
	var score, totalWeight, confSum float64
	for i, spec := range e.specs {
		if !spec.Scored {
			continue
		}
		a := analyses[i]
		adjusted := weightSnap.Weight(a.Agent) * float64(a.Confidence) / 100
		score += float64(a.Signal.Score()) * adjusted
		confSum += float64(a.Confidence) * adjusted
		totalWeight += adjusted
	}

	avgScore := 0.0
	avgConfidence := 50.0
	if totalWeight > 0 {
		avgScore = score / totalWeight
		avgConfidence = confSum / totalWeight
	}
	signal := market.SignalFromScore(avgScore)

	// Tentative sizing from the derived signal.
	proposed := e.proposeAction(signal, snap, portfolio, avgConfidence)

	// The gate rules on every proposal, including holds, so the
	// reasoning always carries a risk verdict.
	verdict := e.gate.Evaluate(snap, portfolio, proposed)

	decision := &Decision{
		ID:            uuid.NewString(),
		Symbol:        snap.Symbol,
		Signal:        signal,
		WeightedScore: avgScore,
		Confidence:    clampPercent(int(avgConfidence + 0.5)),
		Analyses:      analyses,
		RiskApproved:  verdict.Approved,
		RiskVerdict:   verdict,
		VoteBreakdown: voteBreakdown(analyses),
		CreatedAt:     time.Now().UTC(),
	}

	if !verdict.Approved {
		// Veto: hold with zero quantity regardless of the weighted
		// signal.
		decision.Signal = market.SignalHold
		decision.SuggestedAction = SuggestedAction{Side: "hold", Urgency: agents.UrgencyLow}
	} else {
		decision.SuggestedAction = SuggestedAction{
			Side:       proposed.Side,
			Quantity:   verdict.AdjustedQuantity,
			StopLoss:   verdict.StopLoss,
			TakeProfit: verdict.TakeProfit,
			Urgency:    e.urgency(decision.Signal, analyses),
		}
	}
	decision.Reasoning = e.assembleReasoning(analyses, verdict)

	e.log.Info().
		Str("symbol", snap.Symbol).
		Str("signal", string(decision.Signal)).
		Int("confidence", decision.Confidence).
		Bool("risk_approved", verdict.Approved).
		Float64("avg_score", avgScore).
		Msg("Consensus decision")

	e.enrich(ctx, decision)
	return decision, nil
}

// analyzeWithTimeout runs one agent under the per-agent budget. A slow
// agent is answered for with the documented neutral fallback rather than
// stalling the barrier.
func (e *Engine) analyzeWithTimeout(ctx context.Context, agent agents.Agent, snap *market.MarketSnapshot) agents.Analysis {
	timeout := e.cfg.AgentTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().AgentTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan agents.Analysis, 1)
	go func() {
		done <- agent.Analyze(actx, snap)
	}()

	select {
	case a := <-done:
		return a
	case <-actx.Done():
		e.log.Warn().Str("agent", string(agent.Type())).Msg("Agent exceeded its budget, using neutral fallback")
		metrics.AgentTimeouts.WithLabelValues(string(agent.Type())).Inc()
		return agents.TimeoutFallback(agent.Type())
	}
}

// proposeAction sizes the tentative trade before risk review.
func (e *Engine) proposeAction(signal market.Signal, snap *market.MarketSnapshot, portfolio *market.PortfolioContext, avgConfidence float64) risk.ProposedAction {
	switch signal {
	case market.SignalBuy, market.SignalStrongBuy:
		quantity := portfolio.AvailableCash * basePercent(portfolio.RiskTolerance) * (avgConfidence / 100) / snap.Price
		return risk.ProposedAction{Side: "buy", Quantity: quantity}
	case market.SignalStrongSell:
		return risk.ProposedAction{Side: "sell", Quantity: portfolio.Position.Quantity * e.cfg.StrongSellFraction}
	case market.SignalSell:
		return risk.ProposedAction{Side: "sell", Quantity: portfolio.Position.Quantity * e.cfg.SellFraction}
	default:
		return risk.ProposedAction{Side: "hold", Quantity: 0}
	}
}

// urgency prefers the execution-quality agent's timing advice, falling
// back to signal strength.
func (e *Engine) urgency(signal market.Signal, analyses []agents.Analysis) string {
	for _, a := range analyses {
		if a.Urgency != "" {
			return a.Urgency
		}
	}
	switch signal {
	case market.SignalStrongBuy, market.SignalStrongSell:
		return agents.UrgencyHigh
	case market.SignalHold:
		return agents.UrgencyLow
	default:
		return agents.UrgencyNormal
	}
}

// assembleReasoning concatenates per-agent verdicts in the deterministic
// spec order, then the risk verdict, for reproducible explanations.
func (e *Engine) assembleReasoning(analyses []agents.Analysis, verdict risk.Verdict) string {
	parts := make([]string, 0, len(analyses)+1)
	for _, a := range analyses {
		parts = append(parts, fmt.Sprintf("%s: %s (%d%%)", a.Agent, a.Signal, a.Confidence))
	}
	if verdict.Approved {
		parts = append(parts, fmt.Sprintf("risk: approved (%s)", verdict.Reasoning))
	} else {
		parts = append(parts, fmt.Sprintf("risk: rejected (%s)", verdict.Reasoning))
	}
	return strings.Join(parts, " | ")
}

// enrich asks the optional narrator for free-text elaboration. Absence or
// failure is reported in logs only; the decision is never altered.
func (e *Engine) enrich(ctx context.Context, decision *Decision) {
	if e.narrator == nil {
		return
	}
	text, err := e.narrator.Narrate(ctx, decision)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", decision.Symbol).Msg("Narrative enrichment unavailable")
		return
	}
	decision.Narrative = text
}

func voteBreakdown(analyses []agents.Analysis) map[string]int {
	votes := map[string]int{"buy": 0, "sell": 0, "hold": 0}
	for _, a := range analyses {
		votes[a.Signal.Direction()]++
	}
	return votes
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
