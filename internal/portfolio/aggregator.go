package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/consensus"
	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/router"
)

// Assessment is the portfolio-wide view built from per-asset results.
type Assessment struct {
	TotalAssets          int                       `json:"total_assets"`
	ClassCounts          map[market.AssetClass]int `json:"class_counts"`
	DiversificationScore int                       `json:"diversification_score"` // 0..100, higher is more diversified
	OverallRisk          string                    `json:"overall_risk"`
	Warnings             []string                  `json:"warnings"`
	Recommendations      []string                  `json:"recommendations"`
	Results              []*router.Result          `json:"results"`
	KillSwitch           *risk.KillSwitchStatus    `json:"kill_switch,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
}

// Aggregator rolls per-asset analysis results up into a portfolio
// assessment with concentration and correlation checks.
type Aggregator struct {
	log zerolog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "portfolio_aggregator").Logger(),
	}
}

// Assess computes class concentration (Herfindahl-Hirschman index over
// the five asset classes), grades overall risk, and emits warnings and
// rebalancing recommendations. A triggered kill-switch status swaps the
// assessment's results for defensively overridden copies biased toward
// liquidation; the caller's results are never mutated.
func (a *Aggregator) Assess(results []*router.Result, ks *risk.KillSwitchStatus) *Assessment {
	counts := map[market.AssetClass]int{}
	for _, r := range results {
		counts[r.Class]++
	}

	total := len(results)
	assessment := &Assessment{
		TotalAssets:          total,
		ClassCounts:          counts,
		DiversificationScore: diversificationScore(counts, total),
		OverallRisk:          overallRisk(results),
		Results:              results,
		CreatedAt:            time.Now().UTC(),
	}

	assessment.Warnings = warnings(counts, results)
	assessment.Recommendations = recommendations(assessment)

	if ks != nil && ks.Triggered {
		assessment.KillSwitch = ks
		assessment.Results = overrideResults(results, ks)
		assessment.Warnings = append(assessment.Warnings,
			fmt.Sprintf("kill switch %s: %s", ks.Severity, ks.RecommendedAction))
	}

	a.log.Info().
		Int("total_assets", total).
		Int("diversification_score", assessment.DiversificationScore).
		Str("overall_risk", assessment.OverallRisk).
		Msg("Portfolio assessment complete")
	return assessment
}

// overrideResults applies the kill-switch bias to a private copy of the
// per-asset results; the caller's slice is left untouched. The signal,
// the embedded suggested action, and the recommendation text move
// together so no execution-facing field still describes the pre-trigger
// plan.
func overrideResults(results []*router.Result, ks *risk.KillSwitchStatus) []*router.Result {
	out := make([]*router.Result, len(results))
	for i, r := range results {
		or := *r
		or.Signal = ks.Override(r.Signal)
		if r.Decision != nil {
			d := *r.Decision
			d.Signal = or.Signal
			d.SuggestedAction = defensiveAction(d.SuggestedAction, ks)
			or.Decision = &d
		}
		or.Recommendation = fmt.Sprintf("kill switch %s: %s", ks.Severity, ks.RecommendedAction)
		out[i] = &or
	}
	return out
}

// defensiveAction rewrites an execution suggestion under a triggered
// kill switch. Buys are cancelled outright; sells keep their sizing and
// gain urgency. Liquidation sizing beyond the surviving sells is the
// caller's call via ExposureReduction on the status.
func defensiveAction(action consensus.SuggestedAction, ks *risk.KillSwitchStatus) consensus.SuggestedAction {
	urgency := agents.UrgencyNormal
	if ks.Severity == risk.SeverityEmergency {
		urgency = agents.UrgencyHigh
	}
	if action.Side == "sell" {
		action.Urgency = urgency
		return action
	}
	return consensus.SuggestedAction{Side: "sell", Urgency: urgency}
}

// diversificationScore maps class concentration to 0..100. An empty
// portfolio is treated as a single-unit denominator so the score is 0,
// not NaN.
func diversificationScore(counts map[market.AssetClass]int, total int) int {
	if total == 0 {
		total = 1
	}
	hhi := 0.0
	for _, n := range counts {
		share := float64(n) / float64(total)
		hhi += share * share
	}
	return int(math.Round((1 - hhi) * 100))
}

// overallRisk escalates the portfolio grade from the share of risky
// per-asset results.
func overallRisk(results []*router.Result) string {
	if len(results) == 0 {
		return router.RiskLevelLow
	}
	risky := 0
	for _, r := range results {
		if r.RiskLevel == router.RiskLevelHigh || r.RiskLevel == router.RiskLevelExtreme {
			risky++
		}
	}
	share := float64(risky) / float64(len(results))
	switch {
	case share > 0.75:
		return router.RiskLevelExtreme
	case share > 0.50:
		return router.RiskLevelHigh
	case share < 0.20:
		return router.RiskLevelLow
	default:
		return router.RiskLevelMedium
	}
}

// warnings flags cross-asset correlation clusters. Crypto and growth
// stock allocations tend to sell off together in risk-off regimes.
func warnings(counts map[market.AssetClass]int, results []*router.Result) []string {
	var out []string
	if counts[market.AssetCrypto] >= 3 && counts[market.AssetStock] >= 3 {
		out = append(out, "large crypto and stock allocations are highly correlated in risk-off regimes")
	}
	sells := 0
	for _, r := range results {
		if r.Signal.Direction() == "sell" {
			sells++
		}
	}
	if len(results) > 0 && sells*2 > len(results) {
		out = append(out, "majority of holdings signal sell; broad de-risking indicated")
	}
	return out
}

// recommendations suggests rebalancing moves for concentrated books.
func recommendations(a *Assessment) []string {
	var out []string
	if a.TotalAssets == 0 {
		return out
	}
	if a.DiversificationScore < 40 {
		out = append(out, "portfolio is concentrated in few asset classes; add uncorrelated exposure")
	}
	if a.ClassCounts[market.AssetCommodity] == 0 {
		out = append(out, "no commodity exposure; consider an inflation hedge allocation")
	}
	if a.OverallRisk == router.RiskLevelExtreme {
		out = append(out, "reduce gross exposure until per-asset risk normalizes")
	}
	return out
}
