package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/quantfuse/quantfuse/internal/consensus"
)

// systemPrompt frames the model as a desk commentator, not a decision
// maker. The decision is already made; the narrative only explains it.
const systemPrompt = `You are a trading desk commentator. Given a fused multi-agent ` +
	`trading decision and its per-agent votes, write a short plain-English explanation ` +
	`(2-3 sentences) of why the desk reached this decision. Do not change or second-guess ` +
	`the decision.`

// ClientConfig configures the narrative gateway client.
type ClientConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RatePerSecond caps outbound gateway calls; narrative is an
	// enrichment and must not starve the decision path.
	RatePerSecond float64
	Burst         int
}

// DefaultClientConfig returns the gateway defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:      "http://localhost:8080/v1/chat/completions",
		Model:         "claude-sonnet-4-20250514",
		Temperature:   0.4,
		MaxTokens:     300,
		Timeout:       10 * time.Second,
		RatePerSecond: 2,
		Burst:         4,
	}
}

// Client talks to an OpenAI-compatible chat gateway to produce decision
// narratives. Calls go through a circuit breaker and a rate limiter;
// callers treat every error as a skipped enrichment.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	log        zerolog.Logger
}

var _ consensus.Narrator = (*Client)(nil)

// NewClient builds a gateway client. Zero config fields fall back to
// defaults.
func NewClient(cfg ClientConfig) *Client {
	def := DefaultClientConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst == 0 {
		cfg.Burst = def.Burst
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "narrative_gateway",
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		log:        log.With().Str("component", "narrative").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Narrate renders a decision into a short human summary via the gateway.
func (c *Client) Narrate(ctx context.Context, decision *consensus.Decision) (string, error) {
	if !c.limiter.Allow() {
		return "", fmt.Errorf("narrative rate limit exceeded")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, decisionPrompt(decision))
	})
	if err != nil {
		c.log.Debug().Err(err).Str("symbol", decision.Symbol).Msg("Narrative enrichment skipped")
		return "", err
	}
	return result.(string), nil
}

func (c *Client) complete(ctx context.Context, userPrompt string) (string, error) {
	request := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in gateway response")
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// decisionPrompt flattens the decision into the user message.
func decisionPrompt(decision *consensus.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nDecision: %s (confidence %d%%, weighted score %.2f)\n",
		decision.Symbol, decision.Signal, decision.Confidence, decision.WeightedScore)
	fmt.Fprintf(&b, "Risk gate: approved=%t\n", decision.RiskApproved)
	b.WriteString("Agent votes:\n")
	for _, a := range decision.Analyses {
		fmt.Fprintf(&b, "- %s: %s (%d%%) %s\n", a.Agent, a.Signal, a.Confidence, a.Reasoning)
	}
	return b.String()
}
