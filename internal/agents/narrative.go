package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// NarrativeHype rides crypto attention cycles: building social momentum is
// bullish until it turns into a blow-off, at which point the read flips
// contrarian.
type NarrativeHype struct{}

// NewNarrativeHype creates the narrative/hype agent.
func NewNarrativeHype() *NarrativeHype { return &NarrativeHype{} }

func (a *NarrativeHype) Type() Type { return TypeNarrative }

func (a *NarrativeHype) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	s := snap.Sentiment
	if s == nil {
		return insufficientData(TypeNarrative, "no sentiment bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	values := map[string]float64{
		"social_score":         s.SocialScore,
		"social_volume_change": s.SocialVolumeChange,
		"fear_greed_index":     s.FearGreedIndex,
	}

	// Blow-off guard comes first: euphoric greed on a parabolic volume
	// spike is distribution, not accumulation.
	if s.SocialVolumeChange > 2.0 && s.FearGreedIndex > 80 {
		signal = market.SignalSell
		confidence += 10
		notes = append(notes, "parabolic social volume into extreme greed, blow-off risk")
	} else if s.SocialScore > 0.5 && s.SocialVolumeChange > 0.5 {
		signal = market.SignalBuy
		confidence += 12
		notes = append(notes, fmt.Sprintf("narrative building (score %.2f, volume +%.0f%%)", s.SocialScore, s.SocialVolumeChange*100))
	}

	// Hostile headlines cut through hype either way.
	if s.NewsScore < -0.4 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		} else if signal.Score() < 0 {
			signal = signal.Escalate()
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("negative news flow (%.2f)", s.NewsScore))
	}

	if len(notes) == 0 {
		notes = append(notes, "no dominant narrative")
	}

	return Analysis{
		Agent:      TypeNarrative,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}
