package models

import "time"

// MarketState carries optional market conditions supplied by the caller.
type MarketState struct {
	Trend      string             `json:"trend,omitempty"` // e.g. "bullish", "bearish", "sideways"
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Volatility *float64           `json:"volatility,omitempty"` // caller override, skips estimation
}

// VolatilityContext is the cached market-volatility reading for one
// (index, window) pair.
type VolatilityContext struct {
	Value      float64   `json:"value"` // >= 0, neutral default is 1.0
	IsHigh     bool      `json:"is_high"`
	WindowDays int       `json:"window_days"`
	ComputedAt time.Time `json:"computed_at"`
	Simulated  bool      `json:"simulated"` // true when produced by the offline generator
}

// NeutralVolatility is the safe default used when no volatility reading
// can be computed.
func NeutralVolatility(windowDays int) VolatilityContext {
	return VolatilityContext{
		Value:      1.0,
		IsHigh:     false,
		WindowDays: windowDays,
		ComputedAt: time.Now(),
	}
}
