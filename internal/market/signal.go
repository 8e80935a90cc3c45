// Package market defines the shared vocabulary of the decision engine:
// market snapshots, portfolio context, and the discrete trading signal.
package market

// Signal is a discrete directional recommendation. Signals form a total
// order via their numeric score: strong_sell < sell < hold < buy < strong_buy.
type Signal string

const (
	SignalStrongBuy  Signal = "strong_buy"
	SignalBuy        Signal = "buy"
	SignalHold       Signal = "hold"
	SignalSell       Signal = "sell"
	SignalStrongSell Signal = "strong_sell"
)

var signalScores = map[Signal]int{
	SignalStrongBuy:  2,
	SignalBuy:        1,
	SignalHold:       0,
	SignalSell:       -1,
	SignalStrongSell: -2,
}

// Score maps the signal onto {-2,-1,0,1,2}. Unknown values score 0.
func (s Signal) Score() int {
	return signalScores[s]
}

// Valid reports whether s is one of the five defined signals.
func (s Signal) Valid() bool {
	_, ok := signalScores[s]
	return ok
}

// Escalate strengthens a directional signal one step: buy becomes
// strong_buy and sell becomes strong_sell. Hold and the strong variants
// are unchanged.
func (s Signal) Escalate() Signal {
	switch s {
	case SignalBuy:
		return SignalStrongBuy
	case SignalSell:
		return SignalStrongSell
	default:
		return s
	}
}

// SignalFromScore derives a signal from a weighted average score using the
// fixed consensus thresholds. The derivation is monotonic in avgScore.
func SignalFromScore(avgScore float64) Signal {
	switch {
	case avgScore >= 1.5:
		return SignalStrongBuy
	case avgScore <= -1.5:
		return SignalStrongSell
	case avgScore >= 0.5:
		return SignalBuy
	case avgScore <= -0.5:
		return SignalSell
	default:
		return SignalHold
	}
}

// Direction reduces the signal to a trade side for order suggestions.
func (s Signal) Direction() string {
	switch s {
	case SignalStrongBuy, SignalBuy:
		return "buy"
	case SignalStrongSell, SignalSell:
		return "sell"
	default:
		return "hold"
	}
}
