// internal/nav/signal.go
package nav

// Signal is the three-way reading of the mNAV ratio
type Signal string

const (
	// SignalUndervalued: the market prices the stock below its treasury
	SignalUndervalued Signal = "undervalued"
	// SignalHold: fair value band
	SignalHold Signal = "hold"
	// SignalOverbought: premium above the upper threshold
	SignalOverbought Signal = "overbought"
)

// Thresholds bound the hold band. Both bounds are inclusive in the band.
type Thresholds struct {
	UndervaluedBelow float64
	OverboughtAbove  float64
}

// DefaultThresholds returns the 1.0x / 2.0x band
func DefaultThresholds() Thresholds {
	return Thresholds{UndervaluedBelow: 1.0, OverboughtAbove: 2.0}
}

// Classify maps a ratio onto a signal
func Classify(ratio float64, th Thresholds) Signal {
	switch {
	case ratio < th.UndervaluedBelow:
		return SignalUndervalued
	case ratio > th.OverboughtAbove:
		return SignalOverbought
	default:
		return SignalHold
	}
}

// Action is the trading verb shown next to the signal
func (s Signal) Action() string {
	switch s {
	case SignalUndervalued:
		return "BUY"
	case SignalOverbought:
		return "SELL"
	default:
		return "HOLD"
	}
}
