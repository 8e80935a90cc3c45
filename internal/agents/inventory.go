package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfuse/quantfuse/internal/market"
)

// InventorySupply is the commodity substitute for fundamental analysis:
// inventory draws and builds plus supply-disruption risk.
type InventorySupply struct{}

// NewInventorySupply creates the inventory/supply-disruption agent.
func NewInventorySupply() *InventorySupply { return &InventorySupply{} }

func (a *InventorySupply) Type() Type { return TypeInventory }

func (a *InventorySupply) Analyze(_ context.Context, snap *market.MarketSnapshot) Analysis {
	m := snap.Macro
	if m == nil {
		return insufficientData(TypeInventory, "no macro bundle in snapshot")
	}

	signal := market.SignalHold
	confidence := baseConfidence
	var notes []string
	values := map[string]float64{
		"inventory_change":       m.InventoryChange,
		"supply_disruption_risk": m.SupplyDisruptionRisk,
	}

	// Inventory draws tighten the market; builds loosen it.
	if m.InventoryChange < -0.05 {
		signal = market.SignalBuy
		confidence += 12
		notes = append(notes, fmt.Sprintf("inventories drawing %.1f%%", m.InventoryChange*100))
	} else if m.InventoryChange > 0.05 {
		signal = market.SignalSell
		confidence += 12
		notes = append(notes, fmt.Sprintf("inventories building %.1f%%", m.InventoryChange*100))
	}

	// Disruption risk escalates the bull case.
	if m.SupplyDisruptionRisk > 0.6 {
		if signal == market.SignalHold {
			signal = market.SignalBuy
		} else if signal.Score() > 0 {
			signal = signal.Escalate()
		}
		confidence += 10
		notes = append(notes, fmt.Sprintf("supply disruption risk %.0f%%", m.SupplyDisruptionRisk*100))
	}

	if len(notes) == 0 {
		notes = append(notes, "supply picture balanced")
	}

	return Analysis{
		Agent:      TypeInventory,
		Signal:     signal,
		Confidence: clampConfidence(confidence),
		Reasoning:  strings.Join(notes, "; "),
		Indicators: values,
		CreatedAt:  time.Now().UTC(),
	}
}
