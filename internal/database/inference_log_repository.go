package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/porticoai/portico/internal/models"
)

// InferenceLogRepository persists model-call audit records.
type InferenceLogRepository struct {
	db *sql.DB
}

// NewInferenceLogRepository creates a repository over the given pool.
func NewInferenceLogRepository(db *sql.DB) *InferenceLogRepository {
	return &InferenceLogRepository{db: db}
}

// Create inserts one inference call record.
func (r *InferenceLogRepository) Create(ctx context.Context, log models.InferenceLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inference_logs (
			provider, model, operation, tokens_used, input_tokens, output_tokens,
			cost_usd, latency_ms, status, error_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.Provider, log.Model, log.Operation, log.TokensUsed,
		log.InputTokens, log.OutputTokens, log.CostUSD, log.LatencyMs,
		log.Status, log.ErrorMessage, nullIfEmpty(log.Metadata),
	)
	if err != nil {
		return fmt.Errorf("insert inference log: %w", err)
	}
	return nil
}

// List returns matching records, newest first.
func (r *InferenceLogRepository) List(ctx context.Context, query models.InferenceLogQuery) ([]models.InferenceLog, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, provider, model, operation, tokens_used, input_tokens, output_tokens,
		       cost_usd, latency_ms, status, error_message, metadata, created_at
		FROM inference_logs
		WHERE 1=1`)

	var args []interface{}
	addFilter := func(clause string, value interface{}) {
		args = append(args, value)
		fmt.Fprintf(&sb, " AND %s $%d", clause, len(args))
	}

	if query.Provider != "" {
		addFilter("provider =", query.Provider)
	}
	if query.Model != "" {
		addFilter("model =", query.Model)
	}
	if query.Operation != "" {
		addFilter("operation =", query.Operation)
	}
	if query.Status != "" {
		addFilter("status =", query.Status)
	}
	if query.StartDate != nil {
		addFilter("created_at >=", *query.StartDate)
	}
	if query.EndDate != nil {
		addFilter("created_at <=", *query.EndDate)
	}

	sb.WriteString(" ORDER BY created_at DESC")
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query inference logs: %w", err)
	}
	defer rows.Close()

	var logs []models.InferenceLog
	for rows.Next() {
		log, err := scanInferenceLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

// GetStats aggregates call counts, token spend and latency over the
// optional date range.
func (r *InferenceLogRepository) GetStats(ctx context.Context, startDate, endDate *time.Time) (*models.InferenceLogStats, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT
			COUNT(*),
			COALESCE(SUM(tokens_used), 0),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM inference_logs
		WHERE 1=1`)

	var args []interface{}
	if startDate != nil {
		args = append(args, *startDate)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if endDate != nil {
		args = append(args, *endDate)
		fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
	}

	var stats models.InferenceLogStats
	err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(
		&stats.TotalCalls, &stats.TotalTokens, &stats.TotalCostUSD,
		&stats.SuccessfulCalls, &stats.FailedCalls, &stats.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("inference stats: %w", err)
	}
	return &stats, nil
}

func scanInferenceLog(row rowScanner) (*models.InferenceLog, error) {
	var log models.InferenceLog
	var metadata sql.NullString

	err := row.Scan(
		&log.ID, &log.Provider, &log.Model, &log.Operation, &log.TokensUsed,
		&log.InputTokens, &log.OutputTokens, &log.CostUSD, &log.LatencyMs,
		&log.Status, &log.ErrorMessage, &metadata, &log.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan inference log: %w", err)
	}
	log.Metadata = metadata.String
	return &log, nil
}
