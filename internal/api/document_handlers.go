package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/porticoai/portico/internal/models"
)

// DocumentIndexer adds documents to the retrieval corpus.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, id, content string, metadata map[string]string) error
}

// DocumentHandler handles corpus management requests
type DocumentHandler struct {
	indexer DocumentIndexer
	logger  *slog.Logger
}

// NewDocumentHandler creates a new handler
func NewDocumentHandler(indexer DocumentIndexer, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		indexer: indexer,
		logger:  logger,
	}
}

// IndexDocuments handles POST /api/documents
func (h *DocumentHandler) IndexDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.indexer == nil {
		http.Error(w, "Document indexing is not configured", http.StatusServiceUnavailable)
		return
	}

	var docs []models.Document
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(docs) == 0 {
		http.Error(w, "At least one document is required", http.StatusBadRequest)
		return
	}

	for i := range docs {
		if err := ValidateDocument(&docs[i]); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	indexed := 0
	for _, doc := range docs {
		if err := h.indexer.IndexDocument(r.Context(), doc.ID, doc.Text, doc.Metadata); err != nil {
			h.logger.Error("failed to index document", "id", doc.ID, "error", err)
			http.Error(w, "Failed to index document "+doc.ID, http.StatusInternalServerError)
			return
		}
		indexed++
	}

	h.logger.Info("documents indexed", "count", indexed)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"indexed": indexed})
}
