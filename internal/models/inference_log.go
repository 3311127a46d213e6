package models

import "time"

// Operations recorded against inference logs. Decision calls come from the
// model cascade; query processing from retrieval; embedding from corpus
// indexing.
const (
	OpDecision        = "decision"
	OpQueryProcessing = "query_processing"
	OpEmbedding       = "embedding"
)

// InferenceLog is one model API call made on behalf of an advice run,
// recorded for cost and latency auditing.
type InferenceLog struct {
	ID           int       `json:"id"`
	Provider     string    `json:"provider"` // "openai", "anthropic"
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	TokensUsed   int       `json:"tokens_used"`
	InputTokens  *int      `json:"input_tokens"`
	OutputTokens *int      `json:"output_tokens"`
	CostUSD      *float64  `json:"cost_usd"`
	LatencyMs    *int      `json:"latency_ms"`
	Status       string    `json:"status"` // "success" or "error"
	ErrorMessage *string   `json:"error_message"`
	Metadata     string    `json:"metadata"` // JSONB payload, e.g. run_id
	CreatedAt    time.Time `json:"created_at"`
}

// Succeeded reports whether the call completed without error.
func (l InferenceLog) Succeeded() bool { return l.Status == "success" }

// InferenceLogStats aggregates spend and reliability over a date range.
type InferenceLogStats struct {
	TotalCalls      int     `json:"total_calls"`
	TotalTokens     int64   `json:"total_tokens"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	SuccessfulCalls int     `json:"successful_calls"`
	FailedCalls     int     `json:"failed_calls"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
}

// InferenceLogQuery filters the log listing. Zero values mean "no filter".
type InferenceLogQuery struct {
	Provider  string
	Model     string
	Operation string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
