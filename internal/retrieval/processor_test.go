package retrieval

import (
	"testing"
)

func TestParseProcessedQuery(t *testing.T) {
	raw := `{"expanded_query": "dividend yield of Apple stock", "entities": ["AAPL", "AAPL", "MSFT"], "query_type": "math"}`
	processed, err := parseProcessedQuery(raw, "What is AAPL's yield?")
	if err != nil {
		t.Fatalf("parseProcessedQuery() error = %v", err)
	}
	if processed.ExpandedQuery != "dividend yield of Apple stock" {
		t.Errorf("expanded = %q", processed.ExpandedQuery)
	}
	if len(processed.Entities) != 2 || processed.Entities[0] != "AAPL" || processed.Entities[1] != "MSFT" {
		t.Errorf("entities = %v, want deduped [AAPL MSFT]", processed.Entities)
	}
	if processed.QueryType != "math" {
		t.Errorf("query_type = %q, want math", processed.QueryType)
	}
}

func TestParseProcessedQueryBackfillsFromRawQuery(t *testing.T) {
	processed, err := parseProcessedQuery(`{}`, "Should I sell $TSLA?")
	if err != nil {
		t.Fatalf("parseProcessedQuery() error = %v", err)
	}
	if processed.ExpandedQuery != "Should I sell $TSLA?" {
		t.Errorf("expanded = %q, want raw query", processed.ExpandedQuery)
	}
	if len(processed.Entities) != 1 || processed.Entities[0] != "TSLA" {
		t.Errorf("entities = %v, want [TSLA]", processed.Entities)
	}
}

func TestParseProcessedQueryRejectsInvalidJSON(t *testing.T) {
	if _, err := parseProcessedQuery("not json", "q"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExtractTickers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"cashtag", "Thoughts on $NVDA earnings?", []string{"NVDA"}},
		{"bare symbols", "Compare VTI and BND allocations", []string{"VTI", "BND"}},
		{"common words skipped", "THE plan FOR my USD savings", nil},
		{"single cashtag letter kept", "Is $F undervalued?", []string{"F"}},
		{"dedup", "AAPL versus AAPL again", []string{"AAPL"}},
		{"no tickers", "should i rebalance my portfolio", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTickers(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractTickers(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ticker[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
