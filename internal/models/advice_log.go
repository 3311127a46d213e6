package models

import "time"

// AdviceLog records one completed decision-workflow run.
type AdviceLog struct {
	ID           int       `json:"id"`
	RunID        string    `json:"run_id"`
	Query        string    `json:"query"`
	RiskProfile  string    `json:"risk_profile"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	Fallback     bool      `json:"fallback"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ContextCount int       `json:"context_count"`
	DurationMs   *int      `json:"duration_ms,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdviceLogQuery filters persisted workflow runs.
type AdviceLogQuery struct {
	Action    string
	Fallback  *bool
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// AdviceLogStats aggregates persisted workflow runs.
type AdviceLogStats struct {
	TotalRuns     int     `json:"total_runs"`
	FallbackRuns  int     `json:"fallback_runs"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}
