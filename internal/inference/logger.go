// Package inference records model API calls for cost and latency auditing.
package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/porticoai/portico/internal/models"
)

// Repository persists inference call records.
type Repository interface {
	Create(ctx context.Context, log models.InferenceLog) error
}

// Logger writes one audit record per model API call. Writes happen on a
// background goroutine so a slow database never delays an advice run.
type Logger struct {
	repo   Repository
	logger *slog.Logger
}

// NewLogger creates an inference logger over the given repository.
func NewLogger(repo Repository, logger *slog.Logger) *Logger {
	return &Logger{repo: repo, logger: logger}
}

// Call describes one inference API call.
type Call struct {
	Provider     string
	Model        string
	Operation    string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	Err          error
	Metadata     map[string]interface{}
}

// Record persists the call asynchronously. The record survives request
// cancellation: an aborted run is exactly the kind of call worth auditing.
func (l *Logger) Record(ctx context.Context, call Call) {
	record := l.build(call)

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := l.repo.Create(bgCtx, record); err != nil {
			l.logger.Error("failed to record inference call", "error", err,
				"provider", call.Provider, "model", call.Model)
		}
	}()
}

func (l *Logger) build(call Call) models.InferenceLog {
	total := call.InputTokens + call.OutputTokens
	latencyMs := int(call.Latency.Milliseconds())
	cost := EstimateCost(call.Provider, call.Model, call.InputTokens, call.OutputTokens)

	record := models.InferenceLog{
		Provider:     call.Provider,
		Model:        call.Model,
		Operation:    call.Operation,
		TokensUsed:   total,
		InputTokens:  &call.InputTokens,
		OutputTokens: &call.OutputTokens,
		CostUSD:      &cost,
		LatencyMs:    &latencyMs,
		Status:       "success",
	}

	if call.Err != nil {
		record.Status = "error"
		msg := call.Err.Error()
		record.ErrorMessage = &msg
	}

	if call.Metadata != nil {
		if raw, err := json.Marshal(call.Metadata); err == nil {
			record.Metadata = string(raw)
		}
	}

	return record
}

// pricing is USD per 1M tokens (input, output). Unlisted models fall back
// to their provider's default row.
var pricing = map[string]map[string][2]float64{
	"openai": {
		"gpt-4o":        {2.50, 10.00},
		"gpt-4o-mini":   {0.15, 0.60},
		"gpt-3.5-turbo": {0.50, 1.50},
		"":              {5.00, 15.00},
	},
	"anthropic": {
		"claude-3-haiku-20240307": {0.25, 1.25},
		"claude-3-opus-20240229":  {15.00, 75.00},
		"":                        {3.00, 15.00},
	},
}

// EstimateCost returns a rough USD cost for the call. Estimates only; the
// provider invoice is authoritative.
func EstimateCost(provider, model string, inputTokens, outputTokens int) float64 {
	table, ok := pricing[provider]
	if !ok {
		table = pricing["anthropic"]
	}
	rates, ok := table[model]
	if !ok {
		rates = table[""]
	}

	return float64(inputTokens)/1_000_000*rates[0] + float64(outputTokens)/1_000_000*rates[1]
}
