package decision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/porticoai/portico/internal/models"
)

const systemPrompt = "You are a financial advisory AI assistant. Analyze the provided information and respond with valid JSON according to the requested format."

// buildPrompt assembles the reasoning prompt: query, source-labeled contexts,
// profile/portfolio/market summaries, then the fixed response-format block.
func buildPrompt(query string, contexts []models.RetrievedContext, profile models.UserProfile, portfolio models.PortfolioState, market models.MarketState) string {
	var sb strings.Builder

	sb.WriteString("You are a portfolio advisor. Answer the user's question using the supporting context below, ")
	sb.WriteString("and produce a structured investment recommendation.\n\n")

	sb.WriteString("USER QUESTION:\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	if len(contexts) > 0 {
		sb.WriteString("=== SUPPORTING CONTEXT ===\n\n")
		for _, c := range contexts {
			fmt.Fprintf(&sb, "[%s] %s\n", c.SourceID, c.Text)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=== INVESTOR PROFILE ===\n\n")
	fmt.Fprintf(&sb, "Risk tolerance: %s\n", profile.RiskTolerance.Normalize())
	if len(profile.InvestmentGoals) > 0 {
		fmt.Fprintf(&sb, "Goals: %s\n", strings.Join(profile.InvestmentGoals, ", "))
	}
	if profile.TimeHorizon != "" {
		fmt.Fprintf(&sb, "Time horizon: %s\n", profile.TimeHorizon)
	}
	if profile.Age > 0 {
		fmt.Fprintf(&sb, "Age: %d\n", profile.Age)
	}
	sb.WriteString("\n")

	if !portfolio.IsEmpty() {
		sb.WriteString("=== CURRENT PORTFOLIO ===\n\n")
		fmt.Fprintf(&sb, "Total value: $%s\n", portfolio.TotalValue.StringFixed(2))
		for _, h := range portfolio.Holdings {
			name := h.Name
			if name == "" {
				name = h.Ticker
			}
			fmt.Fprintf(&sb, "%s (%s): $%s (%.1f%%)\n", h.Ticker, name, h.Value.StringFixed(2), h.WeightPct)
		}
		if len(portfolio.Allocations) > 0 {
			sb.WriteString("Asset allocation: ")
			first := true
			for _, class := range sortedKeys(portfolio.Allocations) {
				if !first {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%s %.1f%%", class, portfolio.Allocations[class])
				first = false
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if market.Trend != "" || len(market.Indicators) > 0 {
		sb.WriteString("=== MARKET CONDITIONS ===\n\n")
		if market.Trend != "" {
			fmt.Fprintf(&sb, "Trend: %s\n", market.Trend)
		}
		for _, name := range sortedKeys(market.Indicators) {
			fmt.Fprintf(&sb, "%s: %.2f\n", name, market.Indicators[name])
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=== RESPONSE FORMAT ===\n\n")
	sb.WriteString("Respond with a JSON object in this exact structure:\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"decision\": {\"action\": \"buy|sell|hold|rebalance|allocate|no_action\", \"details\": {}},\n")
	sb.WriteString("  \"reasoning\": \"...\",\n")
	sb.WriteString("  \"recommendations\": [{\"type\": \"...\", \"asset\": \"...\", \"rationale\": \"...\"}],\n")
	sb.WriteString("  \"confidence\": 0.0,\n")
	sb.WriteString("  \"sources_used\": [\"...\"]\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Confidence must be between 0.0 and 1.0. Cite source identifiers from the supporting context in sources_used.\n")

	return sb.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
