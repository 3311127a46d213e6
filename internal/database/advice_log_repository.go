package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/porticoai/portico/internal/models"
)

// AdviceLogRepository handles advice run database operations
type AdviceLogRepository struct {
	db *sql.DB
}

// NewAdviceLogRepository creates a new repository
func NewAdviceLogRepository(db *sql.DB) *AdviceLogRepository {
	return &AdviceLogRepository{db: db}
}

// RecordAdvice persists one completed workflow run
func (r *AdviceLogRepository) RecordAdvice(ctx context.Context, log models.AdviceLog) error {
	query := `
		INSERT INTO advice_logs (
			run_id, query, risk_profile, action, confidence, fallback,
			error_message, context_count, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.RunID,
		log.Query,
		log.RiskProfile,
		log.Action,
		log.Confidence,
		log.Fallback,
		nullIfEmpty(log.ErrorMessage),
		log.ContextCount,
		log.DurationMs,
	)

	return err
}

// GetByRunID retrieves one advice run
func (r *AdviceLogRepository) GetByRunID(ctx context.Context, runID string) (*models.AdviceLog, error) {
	query := `
		SELECT id, run_id, query, risk_profile, action, confidence, fallback,
		       error_message, context_count, duration_ms, created_at
		FROM advice_logs
		WHERE run_id = $1
	`

	log, err := scanAdviceLog(r.db.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advice log: %w", err)
	}
	return log, nil
}

// List retrieves advice runs with optional filtering
func (r *AdviceLogRepository) List(ctx context.Context, query models.AdviceLogQuery) ([]models.AdviceLog, error) {
	sqlQuery := `
		SELECT id, run_id, query, risk_profile, action, confidence, fallback,
		       error_message, context_count, duration_ms, created_at
		FROM advice_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if query.Action != "" {
		sqlQuery += fmt.Sprintf(" AND action = $%d", argPos)
		args = append(args, query.Action)
		argPos++
	}

	if query.Fallback != nil {
		sqlQuery += fmt.Sprintf(" AND fallback = $%d", argPos)
		args = append(args, *query.Fallback)
		argPos++
	}

	if query.StartDate != nil {
		sqlQuery += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, query.StartDate)
		argPos++
	}

	if query.EndDate != nil {
		sqlQuery += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, query.EndDate)
		argPos++
	}

	sqlQuery += " ORDER BY created_at DESC"

	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, query.Limit)
		argPos++
	}

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, query.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query advice logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AdviceLog
	for rows.Next() {
		log, err := scanAdviceLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advice log: %w", err)
		}
		logs = append(logs, *log)
	}

	return logs, rows.Err()
}

// GetStats retrieves aggregated run statistics
func (r *AdviceLogRepository) GetStats(ctx context.Context) (*models.AdviceLogStats, error) {
	query := `
		SELECT
			COUNT(*) as total_runs,
			SUM(CASE WHEN fallback THEN 1 ELSE 0 END) as fallback_runs,
			COALESCE(AVG(confidence), 0) as avg_confidence,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		FROM advice_logs
	`

	var stats models.AdviceLogStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRuns,
		&stats.FallbackRuns,
		&stats.AvgConfidence,
		&stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get advice stats: %w", err)
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdviceLog(row rowScanner) (*models.AdviceLog, error) {
	var log models.AdviceLog
	var errorMessage sql.NullString
	var durationMs sql.NullInt64

	err := row.Scan(
		&log.ID,
		&log.RunID,
		&log.Query,
		&log.RiskProfile,
		&log.Action,
		&log.Confidence,
		&log.Fallback,
		&errorMessage,
		&log.ContextCount,
		&durationMs,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if errorMessage.Valid {
		log.ErrorMessage = errorMessage.String
	}
	if durationMs.Valid {
		ms := int(durationMs.Int64)
		log.DurationMs = &ms
	}

	return &log, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
