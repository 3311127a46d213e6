package inference

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/porticoai/portico/internal/models"
)

type captureRepo struct {
	mu      sync.Mutex
	records []models.InferenceLog
	done    chan struct{}
}

func newCaptureRepo() *captureRepo {
	return &captureRepo{done: make(chan struct{}, 8)}
}

func (r *captureRepo) Create(_ context.Context, log models.InferenceLog) error {
	r.mu.Lock()
	r.records = append(r.records, log)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *captureRepo) wait(t *testing.T) models.InferenceLog {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async record")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[len(r.records)-1]
}

func TestRecordSuccess(t *testing.T) {
	repo := newCaptureRepo()
	l := NewLogger(repo, slog.New(slog.DiscardHandler))

	l.Record(context.Background(), Call{
		Provider:     "openai",
		Model:        "gpt-4o",
		Operation:    models.OpDecision,
		InputTokens:  1000,
		OutputTokens: 500,
		Latency:      250 * time.Millisecond,
		Metadata:     map[string]interface{}{"run_id": "abc"},
	})

	got := repo.wait(t)
	if got.Status != "success" || !got.Succeeded() {
		t.Errorf("status = %q", got.Status)
	}
	if got.TokensUsed != 1500 {
		t.Errorf("tokens_used = %d, want 1500", got.TokensUsed)
	}
	if got.LatencyMs == nil || *got.LatencyMs != 250 {
		t.Errorf("latency_ms = %v, want 250", got.LatencyMs)
	}
	if !strings.Contains(got.Metadata, `"run_id":"abc"`) {
		t.Errorf("metadata = %q", got.Metadata)
	}
}

func TestRecordError(t *testing.T) {
	repo := newCaptureRepo()
	l := NewLogger(repo, slog.New(slog.DiscardHandler))

	l.Record(context.Background(), Call{
		Provider: "anthropic",
		Model:    "claude-3-opus-20240229",
		Err:      errors.New("rate limited"),
	})

	got := repo.wait(t)
	if got.Status != "error" {
		t.Errorf("status = %q, want error", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "rate limited" {
		t.Errorf("error_message = %v", got.ErrorMessage)
	}
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	repo := newCaptureRepo()
	l := NewLogger(repo, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l.Record(ctx, Call{Provider: "openai", Model: "gpt-4o-mini"})
	repo.wait(t)
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		in, out  int
		want     float64
	}{
		{"gpt-4o", "openai", "gpt-4o", 1_000_000, 1_000_000, 12.50},
		{"unknown openai model", "openai", "gpt-next", 1_000_000, 0, 5.00},
		{"unknown provider", "mystery", "m", 0, 1_000_000, 15.00},
		{"zero tokens", "openai", "gpt-4o", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.provider, tt.model, tt.in, tt.out)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("EstimateCost() = %v, want %v", got, tt.want)
			}
		})
	}
}
