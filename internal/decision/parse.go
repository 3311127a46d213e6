package decision

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/porticoai/portico/internal/models"
)

const (
	// Confidence assigned when a structurally valid response omits the field.
	defaultConfidence = 0.7
	// Confidence assigned when no JSON could be extracted at all.
	freeTextConfidence = 0.5
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseDecisionResponse turns raw model output into a DecisionResult using an
// ordered strategy chain: fenced ```json block, then the first top-level
// JSON object, then a free-text fallback that keeps the raw output as
// reasoning. Warnings record every repair; parsing itself never fails.
func parseDecisionResponse(raw string) (models.DecisionResult, []string) {
	if payload := extractFencedJSON(raw); payload != "" {
		if result, warnings, err := decodePayload(payload); err == nil {
			return result, warnings
		}
	}

	if payload := extractBareObject(raw); payload != "" {
		if result, warnings, err := decodePayload(payload); err == nil {
			return result, warnings
		}
	}

	return models.DecisionResult{
		Decision:        models.Decision{Action: models.ActionNoAction},
		Reasoning:       strings.TrimSpace(raw),
		Recommendations: []models.Recommendation{},
		Confidence:      freeTextConfidence,
		SourcesUsed:     []string{},
	}, []string{"response contained no parseable JSON, treated as free-text reasoning"}
}

// extractFencedJSON returns the first fenced ```json block, if any.
func extractFencedJSON(text string) string {
	match := fencedJSONPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}

// extractBareObject finds the first top-level JSON object using brace
// matching, skipping braces inside string literals.
func extractBareObject(text string) string {
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return ""
	}

	braceCount := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if ch == '{' {
				braceCount++
			} else if ch == '}' {
				braceCount--
				if braceCount == 0 {
					return text[startIdx : i+1]
				}
			}
		}
	}

	return ""
}

type rawDecisionPayload struct {
	Decision        *models.Decision        `json:"decision"`
	Reasoning       *string                 `json:"reasoning"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Confidence      *float64                `json:"confidence"`
	SourcesUsed     []string                `json:"sources_used"`
}

// decodePayload parses a JSON payload and backfills any missing field with a
// named default, recording a warning per repair.
func decodePayload(payload string) (models.DecisionResult, []string, error) {
	var parsed rawDecisionPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return models.DecisionResult{}, nil, fmt.Errorf("decode decision payload: %w", err)
	}

	var warnings []string
	result := models.DecisionResult{}

	if parsed.Decision == nil {
		result.Decision = models.Decision{Action: models.ActionNoAction}
		warnings = append(warnings, "decision missing from response, defaulted to no_action")
	} else {
		result.Decision = *parsed.Decision
		if !result.Decision.Action.IsValid() {
			warnings = append(warnings, fmt.Sprintf("unknown decision action %q, defaulted to no_action", result.Decision.Action))
			result.Decision.Action = models.ActionNoAction
		}
	}

	if parsed.Reasoning == nil || *parsed.Reasoning == "" {
		result.Reasoning = "No reasoning provided by model."
		warnings = append(warnings, "reasoning missing from response, defaulted")
	} else {
		result.Reasoning = *parsed.Reasoning
	}

	if parsed.Recommendations == nil {
		result.Recommendations = []models.Recommendation{}
		warnings = append(warnings, "recommendations missing from response, defaulted to empty list")
	} else {
		result.Recommendations = parsed.Recommendations
	}

	if parsed.Confidence == nil {
		result.Confidence = defaultConfidence
		warnings = append(warnings, fmt.Sprintf("confidence missing from response, defaulted to %.1f", defaultConfidence))
	} else {
		result.Confidence = *parsed.Confidence
		if result.Confidence < 0 {
			result.Confidence = 0
			warnings = append(warnings, "confidence below 0, clamped")
		} else if result.Confidence > 1 {
			result.Confidence = 1
			warnings = append(warnings, "confidence above 1, clamped")
		}
	}

	if parsed.SourcesUsed == nil {
		result.SourcesUsed = []string{}
		warnings = append(warnings, "sources_used missing from response, defaulted to empty list")
	} else {
		result.SourcesUsed = parsed.SourcesUsed
	}

	result.Warnings = warnings
	return result, warnings, nil
}
