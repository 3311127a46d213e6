package api

import (
	"fmt"

	"github.com/porticoai/portico/internal/models"
)

const (
	maxQueryLength = 4000
	maxExplicitK   = 50
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateAdviceRequest validates an advice request body
func ValidateAdviceRequest(req *AdviceRequest) error {
	if req.Query == "" {
		return ValidationError{Field: "query", Message: "Query is required"}
	}

	if len(req.Query) > maxQueryLength {
		return ValidationError{Field: "query", Message: fmt.Sprintf("Query must be at most %d characters", maxQueryLength)}
	}

	if req.Profile.RiskTolerance != "" && !req.Profile.RiskTolerance.IsValid() {
		return ValidationError{Field: "profile.risk_tolerance", Message: "Risk tolerance must be conservative, moderate, or aggressive"}
	}

	if req.Profile.Age < 0 || req.Profile.Age > 130 {
		return ValidationError{Field: "profile.age", Message: "Age must be between 0 and 130"}
	}

	if req.TopK < 0 || req.TopK > maxExplicitK {
		return ValidationError{Field: "top_k", Message: fmt.Sprintf("top_k must be between 0 and %d", maxExplicitK)}
	}

	if req.Portfolio.TotalValue.IsNegative() {
		return ValidationError{Field: "portfolio.total_value", Message: "Total value cannot be negative"}
	}

	for i, holding := range req.Portfolio.Holdings {
		if holding.Ticker == "" {
			return ValidationError{Field: fmt.Sprintf("portfolio.holdings[%d].ticker", i), Message: "Ticker is required"}
		}
		if holding.Value.IsNegative() {
			return ValidationError{Field: fmt.Sprintf("portfolio.holdings[%d].value", i), Message: "Holding value cannot be negative"}
		}
	}

	return nil
}

// ValidateDocument validates a document indexing request
func ValidateDocument(doc *models.Document) error {
	if doc.ID == "" {
		return ValidationError{Field: "id", Message: "Document ID is required"}
	}

	if doc.Text == "" {
		return ValidationError{Field: "text", Message: "Document text is required"}
	}

	return nil
}
