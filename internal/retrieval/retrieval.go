package retrieval

import (
	"context"

	"github.com/porticoai/portico/internal/models"
)

// SemanticRetriever returns ranked text passages with source identifiers for
// a query. All retriever adapters implement this one named interface; there
// is no method probing.
type SemanticRetriever interface {
	Retrieve(ctx context.Context, query string, processed models.ProcessedQuery, topK int) ([]models.RetrievedContext, error)
}

// QueryProcessor rewrites a raw query into an expanded form with extracted
// entities and metadata filters.
type QueryProcessor interface {
	Process(ctx context.Context, query string) (models.ProcessedQuery, error)
}
