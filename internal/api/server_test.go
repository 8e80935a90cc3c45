package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfuse/quantfuse/internal/consensus"
	"github.com/quantfuse/quantfuse/internal/market"
	"github.com/quantfuse/quantfuse/internal/portfolio"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/router"
	"github.com/quantfuse/quantfuse/internal/weights"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := weights.NewStore(nil)
	assets := router.New(risk.NewGate(risk.DefaultGateConfig()), store, consensus.DefaultConfig())
	return NewServer(Config{
		Host:       "127.0.0.1",
		Port:       0,
		Assets:     assets,
		Aggregator: portfolio.NewAggregator(),
		KillSwitch: risk.NewKillSwitch(risk.DefaultKillSwitchConfig()),
		Tracker:    weights.NewTracker(store),
	})
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func analyzeBody(symbol string) map[string]interface{} {
	return map[string]interface{}{
		"snapshot": map[string]interface{}{
			"symbol": symbol,
			"price":  104.0,
			"indicators": map[string]interface{}{
				"rsi":  25.0,
				"ema_8": 105.0, "ema_21": 103.0, "ema_50": 101.0, "ema_200": 98.0,
				"macd": map[string]float64{"line": 1.2, "signal": 0.8, "histogram": 0.4},
				"atr":  1.0,
			},
		},
		"portfolio": map[string]interface{}{
			"total_value":    100000.0,
			"available_cash": 50000.0,
			"risk_tolerance": "moderate",
		},
	}
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "QuantFuse")
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", analyzeBody("AAPL"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result router.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, market.AssetStock, result.Class)
	assert.NotNil(t, result.Decision)
	assert.Len(t, result.Analyses, 5)
}

func TestAnalyzeContractViolations(t *testing.T) {
	srv := newTestServer(t)

	// Malformed JSON.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Price missing fails snapshot validation.
	body := analyzeBody("AAPL")
	body["snapshot"].(map[string]interface{})["price"] = 0.0
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/analyze", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeAgentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]interface{}{"snapshot": analyzeBody("AAPL")["snapshot"]}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze/agent/technical", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis struct {
		Agent  string        `json:"agent"`
		Signal market.Signal `json:"signal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, "technical", analysis.Agent)
	assert.Equal(t, market.SignalStrongBuy, analysis.Signal)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/analyze/agent/astrology", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioAssessEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]interface{}{
		"snapshots": []interface{}{
			analyzeBody("AAPL")["snapshot"],
			analyzeBody("BTCUSDT")["snapshot"],
		},
		"portfolio": analyzeBody("AAPL")["portfolio"],
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/portfolio/assess", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var assessment portfolio.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assessment))
	assert.Equal(t, 2, assessment.TotalAssets)
	assert.Equal(t, 1, assessment.ClassCounts[market.AssetStock])
	assert.Equal(t, 1, assessment.ClassCounts[market.AssetCrypto])
}

func TestKillSwitchEvaluateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]interface{}{
		"positions": []map[string]interface{}{
			{"symbol": "AAPL", "value": 600000.0, "volatility": 0.02},
			{"symbol": "BTC", "value": 400000.0, "volatility": 0.045},
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/killswitch/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status  risk.KillSwitchStatus  `json:"status"`
		Metrics risk.KillSwitchMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Status.Triggered)
	assert.Greater(t, resp.Metrics.VaR95, 0.0)
}

func TestFeedbackEndpoint(t *testing.T) {
	srv := newTestServer(t)

	correct := true
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/feedback", map[string]interface{}{
		"agent":   "technical",
		"correct": &correct,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Agent  string  `json:"agent"`
		Weight float64 `json:"weight"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "technical", resp.Agent)
	// 0.65*0.95 + 0.05
	assert.InDelta(t, 0.6675, resp.Weight, 1e-9)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/feedback", map[string]interface{}{
		"agent":   "astrology",
		"correct": &correct,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
