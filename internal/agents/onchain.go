package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// OnChainFlow is the crypto substitute for fundamental analysis: exchange
// flow balance, supply held on exchanges, and address activity.
type OnChainFlow struct{}

// NewOnChainFlow creates the on-chain flow agent.
func NewOnChainFlow() *OnChainFlow { return &OnChainFlow{} }

func (a *OnChainFlow) Type() Type { return TypeOnChain }

func (a *OnChainFlow) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	oc := snap.OnChain
	if oc == nil {
		return insufficientData(TypeOnChain, "no on-chain bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	values := map[string]float64{
		"exchange_inflow":       oc.ExchangeInflow,
		"exchange_outflow":      oc.ExchangeOutflow,
		"exchange_supply_ratio": oc.ExchangeSupplyRatio,
		"active_address_change": oc.ActiveAddressChange,
	}

	// Net exchange flow sets the direction: coins leaving exchanges is
	// accumulation, coins arriving is distribution.
	totalFlow := oc.ExchangeInflow + oc.ExchangeOutflow
	if totalFlow > 0 {
		netRatio := (oc.ExchangeOutflow - oc.ExchangeInflow) / totalFlow
		values["net_flow_ratio"] = netRatio
		if netRatio > 0.2 {
			signal = market.SignalBuy
			confidence += 12
			notes = append(notes, fmt.Sprintf("net outflow from exchanges (%.0f%%)", netRatio*100))
		} else if netRatio < -0.2 {
			signal = market.SignalSell
			confidence += 12
			notes = append(notes, fmt.Sprintf("net inflow to exchanges (%.0f%%)", netRatio*100))
		}
	}

	// Heavy exchange-held supply is sell-side overhang.
	if oc.ExchangeSupplyRatio > 0.8 {
		if signal == market.SignalHold {
			signal = market.SignalSell
		} else if signal.Score() < 0 {
			signal = signal.Escalate()
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("%.0f%% of supply sitting on exchanges", oc.ExchangeSupplyRatio*100))
	}

	// Address activity confirms the flow read.
	if oc.ActiveAddressChange > 0.1 && signal.Score() > 0 {
		confidence += 8
		notes = append(notes, "active addresses growing")
	} else if oc.ActiveAddressChange < -0.1 && signal.Score() < 0 {
		confidence += 8
		notes = append(notes, "active addresses shrinking")
	}

	// Whale churn adds conviction without direction.
	if oc.WhaleTxCount > 50 && signal != market.SignalHold {
		confidence += 5
		notes = append(notes, fmt.Sprintf("%d whale transactions", oc.WhaleTxCount))
	}

	if len(notes) == 0 {
		notes = append(notes, "on-chain flows balanced")
	}

	return Analysis{
		Agent:      TypeOnChain,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}
