package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/consensus"
	"github.com/quantfuse/quantfuse/internal/market"
)

func testDecision() *consensus.Decision {
	return &consensus.Decision{
		Symbol:        "AAPL",
		Signal:        market.SignalBuy,
		Confidence:    72,
		WeightedScore: 0.81,
		RiskApproved:  true,
		Analyses: []agents.Analysis{
			{Agent: agents.TypeTechnical, Signal: market.SignalBuy, Confidence: 80, Reasoning: "RSI oversold"},
			{Agent: agents.TypeSentiment, Signal: market.SignalHold, Confidence: 60, Reasoning: "mixed news"},
		},
	}
}

func TestNarrateSuccess(t *testing.T) {
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  The desk leans long on oversold momentum.  "}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Endpoint: srv.URL})

	text, err := client.Narrate(context.Background(), testDecision())
	require.NoError(t, err)
	assert.Equal(t, "The desk leans long on oversold momentum.", text)

	// The prompt carries the decision and the per-agent votes.
	require.Len(t, gotBody.Messages, 2)
	assert.Contains(t, gotBody.Messages[1].Content, "AAPL")
	assert.Contains(t, gotBody.Messages[1].Content, "technical")
	assert.Contains(t, gotBody.Messages[1].Content, "RSI oversold")
}

func TestNarrateGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Endpoint: srv.URL})

	_, err := client.Narrate(context.Background(), testDecision())
	assert.Error(t, err)
}

func TestNarrateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Endpoint: srv.URL})

	_, err := client.Narrate(context.Background(), testDecision())
	assert.Error(t, err)
}

func TestNarrateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Endpoint: srv.URL, RatePerSecond: 0.001, Burst: 1})

	_, err := client.Narrate(context.Background(), testDecision())
	require.NoError(t, err, "first call consumes the burst")

	_, err = client.Narrate(context.Background(), testDecision())
	assert.Error(t, err, "second call exceeds the rate limit")
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Endpoint: srv.URL, RatePerSecond: 1000, Burst: 1000})

	for i := 0; i < 10; i++ {
		_, err := client.Narrate(context.Background(), testDecision())
		assert.Error(t, err)
	}
	assert.Less(t, calls, 10, "breaker stops hitting a failing gateway")
}
