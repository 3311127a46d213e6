package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	chromem "github.com/philippgille/chromem-go"

	"github.com/porticoai/portico/internal/models"
)

// ChromemRetriever adapts an embedded chromem-go collection to the
// SemanticRetriever interface for self-contained deployments that carry
// their own document corpus.
type ChromemRetriever struct {
	collection *chromem.Collection
	logger     *slog.Logger
}

// NewChromemRetriever opens (or creates) the named collection.
func NewChromemRetriever(db *chromem.DB, name string, embed chromem.EmbeddingFunc, logger *slog.Logger) (*ChromemRetriever, error) {
	collection, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", name, err)
	}
	return &ChromemRetriever{collection: collection, logger: logger}, nil
}

// IndexDocument adds or replaces one document in the collection.
func (r *ChromemRetriever) IndexDocument(ctx context.Context, id, content string, metadata map[string]string) error {
	doc := chromem.Document{
		ID:       id,
		Content:  content,
		Metadata: metadata,
	}
	if err := r.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("index document %q: %w", id, err)
	}
	return nil
}

// Retrieve implements SemanticRetriever over the embedded collection.
func (r *ChromemRetriever) Retrieve(ctx context.Context, query string, processed models.ProcessedQuery, topK int) ([]models.RetrievedContext, error) {
	count := r.collection.Count()
	if count == 0 {
		return []models.RetrievedContext{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := r.collection.Query(ctx, query, topK, processed.MetadataFilters, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	contexts := make([]models.RetrievedContext, 0, len(results))
	for _, res := range results {
		contexts = append(contexts, models.RetrievedContext{
			Text:     res.Content,
			SourceID: res.ID,
			Score:    float64(res.Similarity),
		})
	}

	r.logger.Debug("chromem retrieval", "query_len", len(query), "results", len(contexts))
	return contexts, nil
}
