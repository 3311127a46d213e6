package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/porticoai/portico/internal/database"
	"github.com/porticoai/portico/internal/models"
	"github.com/porticoai/portico/internal/workflow"
)

// AdviceRequest is the body of POST /api/advice
type AdviceRequest struct {
	Query     string                `json:"query"`
	Profile   models.UserProfile    `json:"profile"`
	Portfolio models.PortfolioState `json:"portfolio"`
	Market    models.MarketState    `json:"market"`
	TopK      int                   `json:"top_k,omitempty"`
}

// AdviceResponse wraps the workflow result with its run identifier
type AdviceResponse struct {
	RunID  string                `json:"run_id"`
	Result models.DecisionResult `json:"result"`
}

// AdviceHandler handles HTTP requests for the advice workflow
type AdviceHandler struct {
	engine *workflow.Engine
	repo   *database.AdviceLogRepository // optional
	logger *slog.Logger
}

// NewAdviceHandler creates a new handler. repo may be nil when no database is
// configured; the log endpoints then return 503.
func NewAdviceHandler(engine *workflow.Engine, repo *database.AdviceLogRepository, logger *slog.Logger) *AdviceHandler {
	return &AdviceHandler{
		engine: engine,
		repo:   repo,
		logger: logger,
	}
}

// HandleAdvice handles POST /api/advice
func (h *AdviceHandler) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := ValidateAdviceRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, runID := h.engine.Run(r.Context(), workflow.Request{
		Query:     req.Query,
		Profile:   req.Profile,
		Portfolio: req.Portfolio,
		Market:    req.Market,
		ExplicitK: req.TopK,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(AdviceResponse{RunID: runID, Result: result}); err != nil {
		h.logger.Error("failed to encode advice response", "error", err)
	}
}

// ListAdviceLogs handles GET /api/advice/logs
func (h *AdviceHandler) ListAdviceLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.repo == nil {
		http.Error(w, "Advice history requires a database", http.StatusServiceUnavailable)
		return
	}

	params := r.URL.Query()
	query := models.AdviceLogQuery{
		Action:    params.Get("action"),
		StartDate: timeParam(params.Get("start_date")),
		EndDate:   timeParam(params.Get("end_date")),
		Limit:     intParam(params.Get("limit"), 100),
		Offset:    intParam(params.Get("offset"), 0),
	}

	if fallbackStr := params.Get("fallback"); fallbackStr != "" {
		if fallback, err := strconv.ParseBool(fallbackStr); err == nil {
			query.Fallback = &fallback
		}
	}

	logs, err := h.repo.List(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list advice logs", "error", err)
		http.Error(w, "Failed to list advice logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs":   logs,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// GetAdviceLog handles GET /api/advice/logs/:runID
func (h *AdviceHandler) GetAdviceLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.repo == nil {
		http.Error(w, "Advice history requires a database", http.StatusServiceUnavailable)
		return
	}

	runID := r.URL.Path[len("/api/advice/logs/"):]
	if runID == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	log, err := h.repo.GetByRunID(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to get advice log", "run_id", runID, "error", err)
		http.Error(w, "Failed to get advice log", http.StatusInternalServerError)
		return
	}
	if log == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(log)
}

// GetAdviceStats handles GET /api/advice/stats
func (h *AdviceHandler) GetAdviceStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.repo == nil {
		http.Error(w, "Advice history requires a database", http.StatusServiceUnavailable)
		return
	}

	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get advice stats", "error", err)
		http.Error(w, "Failed to get advice stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
