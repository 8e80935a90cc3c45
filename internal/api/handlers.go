package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/indicators"
	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/router"
)

var startTime = time.Now()

// handleRoot identifies the service.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "QuantFuse API",
		"version": "0.1.0",
		"status":  "running",
		"time":    time.Now().UTC(),
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(startTime).Seconds(),
	})
}

// AnalyzeRequest carries one instrument's market view plus the caller's
// portfolio state.
type AnalyzeRequest struct {
	Snapshot  market.MarketSnapshot   `json:"snapshot" binding:"required"`
	Portfolio market.PortfolioContext `json:"portfolio" binding:"required"`
}

// prepareSnapshot fills the indicator bundle from candle history when
// the caller supplied candles but no precomputed indicators.
func prepareSnapshot(snap *market.MarketSnapshot) {
	if snap.Indicators != nil || len(snap.Candles) == 0 {
		return
	}
	bundle, err := indicators.ComputeBundle(snap.Candles)
	if err != nil {
		log.Debug().Err(err).Str("symbol", snap.Symbol).Msg("Indicator precomputation skipped")
		return
	}
	snap.Indicators = bundle
}

// handleAnalyze runs the full fusion pipeline for one instrument.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prepareSnapshot(&req.Snapshot)

	result, err := s.assets.Analyze(c.Request.Context(), &req.Snapshot, &req.Portfolio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleAnalyzeAgent runs a single agent variant against a snapshot.
func (s *Server) handleAnalyzeAgent(c *gin.Context) {
	agentType := agents.Type(c.Param("type"))

	var req struct {
		Snapshot market.MarketSnapshot `json:"snapshot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prepareSnapshot(&req.Snapshot)

	analysis, err := s.assets.AnalyzeAgent(c.Request.Context(), agentType, &req.Snapshot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// PortfolioAssessRequest carries the instruments to analyze plus shared
// portfolio state.
type PortfolioAssessRequest struct {
	Snapshots  []market.MarketSnapshot  `json:"snapshots" binding:"required"`
	Portfolio  market.PortfolioContext  `json:"portfolio" binding:"required"`
	KillSwitch *KillSwitchEvaluateInput `json:"kill_switch,omitempty"`
}

// KillSwitchEvaluateInput is the kill-switch evaluation payload.
type KillSwitchEvaluateInput struct {
	Positions         []risk.PositionExposure `json:"positions"`
	Options           *risk.OptionsMarketData `json:"options,omitempty"`
	HistoricalReturns []float64               `json:"historical_returns,omitempty"`
}

// handlePortfolioAssess analyzes each instrument and rolls the results
// up into a portfolio assessment.
func (s *Server) handlePortfolioAssess(c *gin.Context) {
	var req PortfolioAssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]*router.Result, 0, len(req.Snapshots))
	for i := range req.Snapshots {
		prepareSnapshot(&req.Snapshots[i])
		result, err := s.assets.Analyze(c.Request.Context(), &req.Snapshots[i], &req.Portfolio)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  err.Error(),
				"symbol": req.Snapshots[i].Symbol,
			})
			return
		}
		results = append(results, result)
	}

	var ksStatus *risk.KillSwitchStatus
	if req.KillSwitch != nil {
		status, _ := s.killSwitch.Evaluate(req.KillSwitch.Positions, req.KillSwitch.Options, req.KillSwitch.HistoricalReturns)
		ksStatus = &status
	}

	c.JSON(http.StatusOK, s.aggregator.Assess(results, ksStatus))
}

// handleKillSwitchEvaluate runs the portfolio circuit breaker alone.
func (s *Server) handleKillSwitchEvaluate(c *gin.Context) {
	var req KillSwitchEvaluateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, report := s.killSwitch.Evaluate(req.Positions, req.Options, req.HistoricalReturns)
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"metrics": report,
	})
}

// FeedbackRequest reports one realized outcome for an agent's past call.
type FeedbackRequest struct {
	Agent   agents.Type `json:"agent" binding:"required"`
	Correct *bool       `json:"correct" binding:"required"`
}

// handleFeedback folds a realized outcome into the agent's adaptive
// weight.
func (s *Server) handleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Agent.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown agent type"})
		return
	}

	weight := s.tracker.Record(req.Agent, *req.Correct)
	c.JSON(http.StatusOK, gin.H{
		"agent":  req.Agent,
		"weight": weight,
	})
}
