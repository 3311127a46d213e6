package models

// Document is a corpus entry submitted for indexing.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RetrievedContext is one ranked passage returned by the semantic retriever.
type RetrievedContext struct {
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
}

// ProcessedQuery is the query-processor view of a raw user query.
type ProcessedQuery struct {
	QueryType       string            `json:"query_type"`
	ExpandedQuery   string            `json:"expanded_query"`
	Entities        []string          `json:"entities"`
	MetadataFilters map[string]string `json:"metadata_filters,omitempty"`
}

// RetrievalResult is the output of the context-retrieval stage.
type RetrievalResult struct {
	Contexts      []RetrievedContext `json:"contexts"`
	ExpandedQuery string             `json:"expanded_query"`
	Entities      []string           `json:"entities"`
	QueryType     string             `json:"query_type"`
}

// Sources returns the source IDs of all retrieved contexts in rank order.
func (r *RetrievalResult) Sources() []string {
	sources := make([]string, 0, len(r.Contexts))
	for _, c := range r.Contexts {
		sources = append(sources, c.SourceID)
	}
	return sources
}
