package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/porticoai/portico/internal/classifier"
	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/models"
	"github.com/porticoai/portico/internal/volatility"
)

// ContextRetriever orchestrates query processing, enrichment and semantic
// retrieval into a ranked context set for the decision stage.
type ContextRetriever struct {
	retriever  SemanticRetriever
	processor  QueryProcessor // optional
	enricher   *Enricher
	sizer      *volatility.AdaptiveSizer // optional; fixedTopK used when absent
	classifier *classifier.Classifier
	fixedTopK  int
	topKPinned bool // pinned top-k disables the sizer
	logger     *slog.Logger
}

// NewContextRetriever wires the retrieval stage. processor and sizer may be
// nil; without a sizer, or with a pinned top-k, every retrieval uses the
// configured fixed count.
func NewContextRetriever(retriever SemanticRetriever, processor QueryProcessor, sizer *volatility.AdaptiveSizer, retrievalCfg config.RetrievalConfig, logger *slog.Logger) *ContextRetriever {
	return &ContextRetriever{
		retriever:  retriever,
		processor:  processor,
		enricher:   NewEnricher(),
		sizer:      sizer,
		classifier: classifier.New(),
		fixedTopK:  retrievalCfg.TopK,
		topKPinned: retrievalCfg.TopKPinned,
		logger:     logger,
	}
}

// Retrieve produces ranked contexts for the query. explicitK > 0 forces the
// document count and skips volatility sizing entirely; a pinned configured
// top-k does the same. Otherwise the adaptive sizer (when configured)
// chooses the count.
func (r *ContextRetriever) Retrieve(ctx context.Context, query string, profile models.UserProfile, portfolio models.PortfolioState, market models.MarketState, explicitK int) (*models.RetrievalResult, error) {
	processed := models.ProcessedQuery{ExpandedQuery: query}
	if r.processor != nil {
		p, err := r.processor.Process(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("query processing failed: %w", err)
		}
		processed = p
		if processed.ExpandedQuery == "" {
			processed.ExpandedQuery = query
		}
	}
	processed.QueryType = string(r.classifier.Classify(query))

	processed = r.enricher.Enrich(processed, profile, portfolio, market)

	topK := r.fixedTopK
	if explicitK > 0 {
		topK = explicitK
	} else if !r.topKPinned && r.sizer != nil {
		count, vol := r.sizer.DocumentCount(ctx, 0, market)
		topK = count
		r.logger.Debug("adaptive retrieval sizing",
			"count", count,
			"volatility", vol.Value,
			"is_high", vol.IsHigh)
	}

	contexts, err := r.retriever.Retrieve(ctx, processed.ExpandedQuery, processed, topK)
	if err != nil {
		return nil, fmt.Errorf("semantic retrieval failed: %w", err)
	}

	r.logger.Info("context retrieval complete",
		"query_type", processed.QueryType,
		"entities", len(processed.Entities),
		"contexts", len(contexts),
		"top_k", topK)

	return &models.RetrievalResult{
		Contexts:      contexts,
		ExpandedQuery: processed.ExpandedQuery,
		Entities:      processed.Entities,
		QueryType:     processed.QueryType,
	}, nil
}
