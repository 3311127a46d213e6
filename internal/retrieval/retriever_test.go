package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/models"
	"github.com/porticoai/portico/internal/volatility"
)

type stubRetriever struct {
	contexts []models.RetrievedContext
	err      error
	lastK    int
	lastQ    models.ProcessedQuery
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, processed models.ProcessedQuery, topK int) ([]models.RetrievedContext, error) {
	s.lastK = topK
	s.lastQ = processed
	if s.err != nil {
		return nil, s.err
	}
	return s.contexts, nil
}

type countingSource struct{ calls int }

func (c *countingSource) Volatility(_ context.Context, _ string, _ int) (float64, error) {
	c.calls++
	return 2.0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func moderateProfile() models.UserProfile {
	return models.UserProfile{
		RiskTolerance:   models.RiskModerate,
		InvestmentGoals: []string{"retirement", "growth"},
	}
}

func sampleHoldings() models.PortfolioState {
	return models.PortfolioState{
		Holdings: []models.Holding{
			{Ticker: "AAPL", WeightPct: 40},
			{Ticker: "VTI", WeightPct: 35},
			{Ticker: "BND", WeightPct: 25},
		},
	}
}

func TestEnricher_AppendsInOrder(t *testing.T) {
	e := NewEnricher()

	processed := models.ProcessedQuery{ExpandedQuery: "Should I buy more AAPL?"}
	out := e.Enrich(processed, moderateProfile(), sampleHoldings(), models.MarketState{Trend: "bullish"})

	expanded := out.ExpandedQuery
	if !strings.HasPrefix(expanded, "Should I buy more AAPL?") {
		t.Errorf("original query must be preserved as prefix: %q", expanded)
	}

	riskIdx := strings.Index(expanded, "risk tolerance: moderate")
	goalIdx := strings.Index(expanded, "goal: retirement")
	trendIdx := strings.Index(expanded, "market trend: bullish")
	if riskIdx < 0 || goalIdx < 0 || trendIdx < 0 {
		t.Fatalf("missing enrichment tokens: %q", expanded)
	}
	if !(riskIdx < goalIdx && goalIdx < trendIdx) {
		t.Errorf("tokens out of order: %q", expanded)
	}
}

func TestEnricher_UnionsTickersIntoEntities(t *testing.T) {
	e := NewEnricher()

	processed := models.ProcessedQuery{Entities: []string{"AAPL", "tesla"}}
	out := e.Enrich(processed, models.UserProfile{}, sampleHoldings(), models.MarketState{})

	want := []string{"AAPL", "tesla", "VTI", "BND"}
	if len(out.Entities) != len(want) {
		t.Fatalf("entities = %v, want %v", out.Entities, want)
	}
	for i, entity := range want {
		if out.Entities[i] != entity {
			t.Errorf("entities[%d] = %q, want %q", i, out.Entities[i], entity)
		}
	}
}

func TestEnricher_CaseVariantsAreDistinct(t *testing.T) {
	e := NewEnricher()

	processed := models.ProcessedQuery{Entities: []string{"aapl"}}
	out := e.Enrich(processed, models.UserProfile{}, sampleHoldings(), models.MarketState{})

	// Tickers are assumed upper-case already; "aapl" and "AAPL" coexist.
	found := 0
	for _, entity := range out.Entities {
		if entity == "aapl" || entity == "AAPL" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected both case variants, got %v", out.Entities)
	}
}

func TestContextRetriever_HappyPath(t *testing.T) {
	stub := &stubRetriever{contexts: []models.RetrievedContext{
		{Text: "AAPL guidance raised", SourceID: "doc-1", Score: 0.92},
		{Text: "Tech sector outlook", SourceID: "doc-2", Score: 0.81},
	}}
	r := NewContextRetriever(stub, nil, nil, config.RetrievalConfig{TopK: 7}, testLogger())

	result, err := r.Retrieve(context.Background(), "Should I buy more AAPL?", moderateProfile(), sampleHoldings(), models.MarketState{}, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if stub.lastK != 7 {
		t.Errorf("topK = %d, want fixed 7", stub.lastK)
	}
	if len(result.Contexts) != 2 {
		t.Errorf("contexts = %d, want 2", len(result.Contexts))
	}
	if result.QueryType == "" {
		t.Error("query type should be classified")
	}
	sources := result.Sources()
	if len(sources) != 2 || sources[0] != "doc-1" {
		t.Errorf("sources = %v", sources)
	}
}

func TestContextRetriever_ErrorPropagates(t *testing.T) {
	stub := &stubRetriever{err: errors.New("index offline")}
	r := NewContextRetriever(stub, nil, nil, config.RetrievalConfig{TopK: 7}, testLogger())

	_, err := r.Retrieve(context.Background(), "query", models.UserProfile{}, models.PortfolioState{}, models.MarketState{}, 0)
	if err == nil {
		t.Fatal("expected error from failing retriever")
	}
}

func newTestSizer(source volatility.MarketDataSource) *volatility.AdaptiveSizer {
	volCfg := config.VolatilityConfig{Threshold: 1.5, CacheTTL: time.Hour, WindowDays: 30, Index: "SPY"}
	estimator := volatility.NewEstimator(source, volCfg, testLogger())
	return volatility.NewAdaptiveSizer(estimator, config.RetrievalConfig{BaseCount: 5, MaxCount: 20, HighVolMultiplier: 2.0}, volCfg)
}

func TestContextRetriever_ExplicitCountSkipsVolatility(t *testing.T) {
	source := &countingSource{}
	stub := &stubRetriever{}
	r := NewContextRetriever(stub, nil, newTestSizer(source), config.RetrievalConfig{TopK: 7}, testLogger())

	_, err := r.Retrieve(context.Background(), "query", models.UserProfile{}, models.PortfolioState{}, models.MarketState{}, 12)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if stub.lastK != 12 {
		t.Errorf("topK = %d, want explicit 12", stub.lastK)
	}
	if source.calls != 0 {
		t.Errorf("volatility source called %d times, want 0", source.calls)
	}
}

func TestContextRetriever_PinnedTopKDisablesSizer(t *testing.T) {
	source := &countingSource{} // reports 2.0, classified high
	stub := &stubRetriever{}
	r := NewContextRetriever(stub, nil, newTestSizer(source), config.RetrievalConfig{TopK: 9, TopKPinned: true}, testLogger())

	_, err := r.Retrieve(context.Background(), "query", models.UserProfile{}, models.PortfolioState{}, models.MarketState{}, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if stub.lastK != 9 {
		t.Errorf("topK = %d, want pinned 9", stub.lastK)
	}
	if source.calls != 0 {
		t.Errorf("volatility source called %d times, want 0", source.calls)
	}
}

func TestContextRetriever_ExplicitCountBeatsPinnedTopK(t *testing.T) {
	stub := &stubRetriever{}
	r := NewContextRetriever(stub, nil, nil, config.RetrievalConfig{TopK: 9, TopKPinned: true}, testLogger())

	_, err := r.Retrieve(context.Background(), "query", models.UserProfile{}, models.PortfolioState{}, models.MarketState{}, 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if stub.lastK != 3 {
		t.Errorf("topK = %d, want explicit 3", stub.lastK)
	}
}

func TestContextRetriever_AdaptiveCount(t *testing.T) {
	source := &countingSource{} // reports 2.0, classified high
	stub := &stubRetriever{}
	r := NewContextRetriever(stub, nil, newTestSizer(source), config.RetrievalConfig{TopK: 7}, testLogger())

	_, err := r.Retrieve(context.Background(), "query", models.UserProfile{}, models.PortfolioState{}, models.MarketState{}, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if stub.lastK != 10 {
		t.Errorf("topK = %d, want 10 (base 5 doubled)", stub.lastK)
	}
	if source.calls != 1 {
		t.Errorf("volatility source called %d times, want 1", source.calls)
	}
}
