package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels. Label values are
// normalized to these sets so the metric surface stays fixed.
const (
	RejectReasonDrawdown   = "drawdown"
	RejectReasonVolatility = "volatility"
	RejectReasonPosition   = "position_limit"
	RejectReasonCash       = "cash_limit"
	RejectReasonOther      = "other"
)

// Decision pipeline metrics
var (
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfuse_decisions_total",
		Help: "Total fused decisions by asset class and final signal",
	}, []string{"class", "signal"})

	DecisionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantfuse_decision_latency_ms",
		Help:    "End-to-end decision latency in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	AgentTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfuse_agent_timeouts_total",
		Help: "Agent analyses that fell back to hold on timeout, by agent type",
	}, []string{"agent"})

	AgentWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quantfuse_agent_weight",
		Help: "Current adaptive weight per agent type",
	}, []string{"agent"})
)

// Risk metrics
var (
	RiskRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfuse_risk_rejections_total",
		Help: "Risk gate rejections by reason",
	}, []string{"reason"})

	KillSwitchScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quantfuse_kill_switch_score",
		Help: "Latest composite kill switch risk score (0.0 to 1.0)",
	})

	KillSwitchTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfuse_kill_switch_triggers_total",
		Help: "Kill switch activations by severity",
	}, []string{"severity"})

	PortfolioVaR = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quantfuse_portfolio_var_usd",
		Help: "Parametric value-at-risk in USD by confidence level",
	}, []string{"confidence"})
)

// API metrics
var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfuse_api_requests_total",
		Help: "API requests by method, path, and status code",
	}, []string{"method", "path", "status"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quantfuse_api_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"method", "path"})
)

// NormalizeRejectReason maps free-form gate reasoning onto the bounded
// label set.
func NormalizeRejectReason(reasoning string) string {
	lower := strings.ToLower(reasoning)
	switch {
	case strings.Contains(lower, "drawdown"):
		return RejectReasonDrawdown
	case strings.Contains(lower, "volatil") || strings.Contains(lower, "atr"):
		return RejectReasonVolatility
	case strings.Contains(lower, "position"):
		return RejectReasonPosition
	case strings.Contains(lower, "cash"):
		return RejectReasonCash
	default:
		return RejectReasonOther
	}
}

// RecordDecision records a completed fusion decision.
func RecordDecision(class, signal string, durationMs float64) {
	DecisionsTotal.WithLabelValues(class, signal).Inc()
	DecisionLatency.Observe(durationMs)
}

// RecordAPIRequest records an API request with duration.
func RecordAPIRequest(method, path, status string, durationMs float64) {
	APIRequests.WithLabelValues(method, path, status).Inc()
	APILatency.WithLabelValues(method, path).Observe(durationMs)
}
