package models

import "github.com/shopspring/decimal"

// Holding is a single position in the caller's portfolio.
type Holding struct {
	Ticker    string          `json:"ticker"` // assumed already normalized upper-case
	Name      string          `json:"name,omitempty"`
	Value     decimal.Decimal `json:"value"`
	WeightPct float64         `json:"weight_pct"`
}

// PortfolioState is the read-only snapshot of the caller's portfolio.
// Percentages are not guaranteed to sum to 100.
type PortfolioState struct {
	TotalValue  decimal.Decimal    `json:"total_value"`
	Holdings    []Holding          `json:"holdings"`
	Allocations map[string]float64 `json:"allocations,omitempty"` // asset class -> percent
}

// Tickers returns the tickers of all holdings in portfolio order.
func (p *PortfolioState) Tickers() []string {
	tickers := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		if h.Ticker != "" {
			tickers = append(tickers, h.Ticker)
		}
	}
	return tickers
}

// IsEmpty reports whether the portfolio carries no positions.
func (p *PortfolioState) IsEmpty() bool {
	return p == nil || len(p.Holdings) == 0
}
