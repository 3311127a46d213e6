package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/porticoai/portico/internal/database"
	"github.com/porticoai/portico/internal/models"
)

// InferenceLogHandler serves the model-call audit trail.
type InferenceLogHandler struct {
	repo   *database.InferenceLogRepository
	logger *slog.Logger
}

// NewInferenceLogHandler creates the handler.
func NewInferenceLogHandler(repo *database.InferenceLogRepository, logger *slog.Logger) *InferenceLogHandler {
	return &InferenceLogHandler{repo: repo, logger: logger}
}

// ListInferenceLogs handles GET /api/admin/inference-logs.
func (h *InferenceLogHandler) ListInferenceLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	query := models.InferenceLogQuery{
		Provider:  params.Get("provider"),
		Model:     params.Get("model"),
		Operation: params.Get("operation"),
		Status:    params.Get("status"),
		StartDate: timeParam(params.Get("start_date")),
		EndDate:   timeParam(params.Get("end_date")),
		Limit:     intParam(params.Get("limit"), 100),
		Offset:    intParam(params.Get("offset"), 0),
	}

	logs, err := h.repo.List(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list inference logs", "error", err)
		http.Error(w, "Failed to list inference logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs":   logs,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// GetInferenceStats handles GET /api/admin/inference-logs/stats.
func (h *InferenceLogHandler) GetInferenceStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	stats, err := h.repo.GetStats(r.Context(), timeParam(params.Get("start_date")), timeParam(params.Get("end_date")))
	if err != nil {
		h.logger.Error("failed to get inference stats", "error", err)
		http.Error(w, "Failed to get inference stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// timeParam parses an RFC3339 query parameter, nil when absent or invalid.
func timeParam(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// intParam parses a non-negative integer parameter with a default.
func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
