package retrieval

import (
	"fmt"
	"strings"

	"github.com/porticoai/portico/internal/models"
)

// Enricher folds user-profile, portfolio and market signals into a processed
// query before retrieval. Every step appends to the expanded query; none
// replaces it.
type Enricher struct{}

// NewEnricher creates a query enricher.
func NewEnricher() *Enricher {
	return &Enricher{}
}

// Enrich applies the enrichment steps in order: profile tokens, holding
// tickers into the entity set, then the market-trend token. Tickers are
// assumed already normalized upper-case; no case folding is applied.
func (e *Enricher) Enrich(processed models.ProcessedQuery, profile models.UserProfile, portfolio models.PortfolioState, market models.MarketState) models.ProcessedQuery {
	var sb strings.Builder
	sb.WriteString(processed.ExpandedQuery)

	if profile.RiskTolerance != "" {
		fmt.Fprintf(&sb, " risk tolerance: %s", profile.RiskTolerance.Normalize())
	}
	for _, goal := range profile.InvestmentGoals {
		if goal != "" {
			fmt.Fprintf(&sb, " goal: %s", goal)
		}
	}

	processed.Entities = unionEntities(processed.Entities, portfolio.Tickers())

	if market.Trend != "" {
		fmt.Fprintf(&sb, " market trend: %s", market.Trend)
	}

	processed.ExpandedQuery = sb.String()
	return processed
}

// unionEntities appends additions not already present, preserving order.
// Matching is exact: case variants are treated as distinct entities.
func unionEntities(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e] = true
	}

	out := existing
	for _, a := range additions {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
