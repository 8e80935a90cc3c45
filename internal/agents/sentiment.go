package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// Sentiment analyzes aggregated news and social readings. Directional
// sentiment follows the crowd; fear/greed extremes are read contrarian.
type Sentiment struct{}

// NewSentiment creates the sentiment analysis agent.
func NewSentiment() *Sentiment { return &Sentiment{} }

func (a *Sentiment) Type() Type { return TypeSentiment }

func (a *Sentiment) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	s := snap.Sentiment
	if s == nil {
		return insufficientData(TypeSentiment, "no sentiment bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	values := map[string]float64{
		"news_score":       s.NewsScore,
		"social_score":     s.SocialScore,
		"fear_greed_index": s.FearGreedIndex,
	}

	// Blended news/social sentiment sets the direction.
	blended := (s.NewsScore + s.SocialScore) / 2
	if blended > 0.3 {
		signal = market.SignalBuy
		confidence += 12
		notes = append(notes, fmt.Sprintf("sentiment positive (%.2f)", blended))
	} else if blended < -0.3 {
		signal = market.SignalSell
		confidence += 12
		notes = append(notes, fmt.Sprintf("sentiment negative (%.2f)", blended))
	}

	// Fear/greed extremes are contrarian.
	if s.FearGreedIndex > 0 && s.FearGreedIndex < 20 {
		if signal == market.SignalHold {
			signal = market.SignalBuy
		} else if signal.Score() > 0 {
			signal = signal.Escalate()
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("extreme fear (%.0f), contrarian buy", s.FearGreedIndex))
	} else if s.FearGreedIndex > 80 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		} else if signal.Score() < 0 {
			signal = signal.Escalate()
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("extreme greed (%.0f), contrarian sell", s.FearGreedIndex))
	}

	// A social-volume spike adds conviction without direction.
	if s.SocialVolumeChange > 1.0 && signal != market.SignalHold {
		confidence += 5
		notes = append(notes, "social volume spiking")
	}

	if len(notes) == 0 {
		notes = append(notes, "sentiment neutral")
	}

	return Analysis{
		Agent:      TypeSentiment,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}
