package validation

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/porticoai/portico/internal/models"
)

const (
	// Allocation sums within this tolerance of 100 are accepted untouched.
	sumTolerance = 0.5
	// Deviations beyond this trigger a full proportional rescale.
	rescaleThreshold = 5.0

	concentrationLimit   = 70.0
	anomalySingleLimit   = 60.0
	anomalyCashLimit     = 30.0
	anomalyMinClasses    = 3
	benchmarkDriftPoints = 20.0
)

// TokenKind classifies an extracted numeric token.
type TokenKind string

const (
	TokenPercentage TokenKind = "percentage"
	TokenCurrency   TokenKind = "currency"
	TokenRatio      TokenKind = "ratio"
)

// NumericToken is one numeric value found in decision reasoning.
type NumericToken struct {
	Kind  TokenKind
	Raw   string
	Value float64
}

// Report summarizes what validation found and changed.
type Report struct {
	Tokens     []NumericToken
	Allocation map[string]float64
	Repaired   bool
	Warnings   []string
}

var (
	percentPattern  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s?%`)
	currencyPattern = regexp.MustCompile(`\$\s?(\d[\d,]*(?:\.\d+)?)`)
	ratioPattern    = regexp.MustCompile(`(?i)ratio\s+(?:of\s+)?(-?\d+(?:\.\d+)?)`)

	// Asset-class vocabulary followed by a percentage, e.g. "stocks: 60%" or
	// "bonds 40%". Tickers stay case-sensitive elsewhere; asset classes are
	// prose and match case-insensitively.
	allocationPattern = regexp.MustCompile(`(?i)\b(stocks?|equit(?:y|ies)|bonds?|fixed[ -]income|cash|real[ -]estate|commodit(?:y|ies)|crypto(?:currenc(?:y|ies))?|international|alternatives?)\b[:\s]+(-?\d+(?:\.\d+)?)\s?%`)
)

// canonicalClass folds vocabulary variants onto one asset-class key.
func canonicalClass(matched string) string {
	switch strings.ToLower(strings.ReplaceAll(matched, "-", " ")) {
	case "stock", "stocks", "equity", "equities":
		return "stocks"
	case "bond", "bonds", "fixed income":
		return "bonds"
	case "cash":
		return "cash"
	case "real estate":
		return "real_estate"
	case "commodity", "commodities":
		return "commodities"
	case "crypto", "cryptocurrency", "cryptocurrencies":
		return "crypto"
	case "international":
		return "international"
	case "alternative", "alternatives":
		return "alternatives"
	}
	return strings.ToLower(matched)
}

// Validator range-checks numeric claims in decision output and repairs
// portfolio allocations that do not sum to 100. All findings are warnings;
// validation never rejects a decision.
type Validator struct {
	benchmark map[string]float64
	logger    *slog.Logger
}

// NewValidator creates a validator. benchmark may be nil to skip drift checks.
func NewValidator(benchmark map[string]float64, logger *slog.Logger) *Validator {
	return &Validator{
		benchmark: benchmark,
		logger:    logger,
	}
}

// Validate inspects a decision result in place: numeric tokens in the
// reasoning are range-checked, any extracted allocation is repaired to sum to
// 100, and anomaly notes are appended to the reasoning text.
func (v *Validator) Validate(result *models.DecisionResult) Report {
	report := Report{
		Tokens: ExtractNumericTokens(result.Reasoning),
	}

	for _, token := range report.Tokens {
		if msg := rangeViolation(token); msg != "" {
			report.Warnings = append(report.Warnings, msg)
		}
	}

	if alloc := ExtractAllocation(result.Reasoning); len(alloc) > 0 {
		repaired, repairNotes := RepairAllocation(alloc)
		report.Allocation = repaired
		report.Repaired = len(repairNotes) > 0
		report.Warnings = append(report.Warnings, repairNotes...)
		report.Warnings = append(report.Warnings, v.detectAnomalies(repaired)...)
	}

	if len(report.Warnings) > 0 {
		v.logger.Info("validation produced warnings", "count", len(report.Warnings))
		result.Warnings = append(result.Warnings, report.Warnings...)
		result.Reasoning = appendNotes(result.Reasoning, report.Warnings)
	}

	return report
}

// ExtractNumericTokens finds percentage, currency and ratio tokens in text.
func ExtractNumericTokens(text string) []NumericToken {
	var tokens []NumericToken

	for _, m := range percentPattern.FindAllStringSubmatch(text, -1) {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			tokens = append(tokens, NumericToken{Kind: TokenPercentage, Raw: m[0], Value: value})
		}
	}
	for _, m := range currencyPattern.FindAllStringSubmatch(text, -1) {
		cleaned := strings.ReplaceAll(m[1], ",", "")
		if value, err := strconv.ParseFloat(cleaned, 64); err == nil {
			tokens = append(tokens, NumericToken{Kind: TokenCurrency, Raw: m[0], Value: value})
		}
	}
	for _, m := range ratioPattern.FindAllStringSubmatch(text, -1) {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			tokens = append(tokens, NumericToken{Kind: TokenRatio, Raw: m[0], Value: value})
		}
	}

	return tokens
}

// rangeViolation returns a warning string when a token is out of range, or ""
// when it is acceptable. Currency values carry no bounds.
func rangeViolation(token NumericToken) string {
	switch token.Kind {
	case TokenPercentage:
		if token.Value < 0 || token.Value > 100 {
			return fmt.Sprintf("percentage %s outside [0, 100]", token.Raw)
		}
	case TokenRatio:
		if token.Value < 0 {
			return fmt.Sprintf("ratio %s is negative", token.Raw)
		}
	}
	return ""
}

// ExtractAllocation pulls an asset-class allocation map from text. The first
// occurrence wins when a class is mentioned more than once.
func ExtractAllocation(text string) map[string]float64 {
	alloc := make(map[string]float64)
	for _, m := range allocationPattern.FindAllStringSubmatch(text, -1) {
		class := canonicalClass(m[1])
		if _, seen := alloc[class]; seen {
			continue
		}
		if value, err := strconv.ParseFloat(m[2], 64); err == nil {
			alloc[class] = value
		}
	}
	return alloc
}

// RepairAllocation normalizes an allocation so it sums to 100: negative
// entries are zeroed first, then the remainder is rescaled proportionally.
// The returned notes describe each repair applied; an empty slice means the
// allocation was already valid.
func RepairAllocation(alloc map[string]float64) (map[string]float64, []string) {
	repaired := make(map[string]float64, len(alloc))
	var notes []string

	hadNegative := false
	for class, value := range alloc {
		if value < 0 {
			notes = append(notes, fmt.Sprintf("negative allocation for %s (%.1f%%) zeroed", class, value))
			repaired[class] = 0
			hadNegative = true
			continue
		}
		repaired[class] = value
	}

	sum := 0.0
	for _, value := range repaired {
		sum += value
	}
	deviation := math.Abs(sum - 100)

	switch {
	case sum == 0:
		notes = append(notes, "allocation sums to 0, cannot rescale")
		return repaired, notes
	case hadNegative || deviation > rescaleThreshold:
		notes = append(notes, fmt.Sprintf("allocation summed to %.1f%%, rescaled to 100%%", sum))
	case deviation > sumTolerance:
		notes = append(notes, fmt.Sprintf("allocation summed to %.1f%%, applied small correction", sum))
	default:
		return repaired, notes
	}

	factor := 100 / sum
	for class := range repaired {
		repaired[class] *= factor
	}
	return repaired, notes
}

// detectAnomalies flags suspicious but non-fatal allocation shapes.
func (v *Validator) detectAnomalies(alloc map[string]float64) []string {
	var anomalies []string

	for _, class := range sortedClasses(alloc) {
		value := alloc[class]
		if value > concentrationLimit {
			anomalies = append(anomalies, fmt.Sprintf("allocation to %s (%.1f%%) exceeds %.0f%% concentration limit", class, value, concentrationLimit))
		} else if value > anomalySingleLimit {
			anomalies = append(anomalies, fmt.Sprintf("allocation to %s (%.1f%%) is unusually concentrated", class, value))
		}
	}

	if cash, ok := alloc["cash"]; ok && cash > anomalyCashLimit {
		anomalies = append(anomalies, fmt.Sprintf("cash allocation (%.1f%%) exceeds %.0f%%", cash, anomalyCashLimit))
	}

	if len(alloc) < anomalyMinClasses {
		anomalies = append(anomalies, fmt.Sprintf("only %d asset classes allocated, diversification may be low", len(alloc)))
	}

	if v.benchmark != nil {
		for _, class := range sortedClasses(v.benchmark) {
			target := v.benchmark[class]
			if math.Abs(alloc[class]-target) > benchmarkDriftPoints {
				anomalies = append(anomalies, fmt.Sprintf("allocation to %s (%.1f%%) deviates more than %.0f points from benchmark %.1f%%", class, alloc[class], benchmarkDriftPoints, target))
			}
		}
	}

	return anomalies
}

// appendNotes attaches warning strings to the reasoning text.
func appendNotes(reasoning string, notes []string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(reasoning, "\n"))
	sb.WriteString("\n\nValidation notes:\n")
	for _, note := range notes {
		sb.WriteString("- ")
		sb.WriteString(note)
		sb.WriteString("\n")
	}
	return sb.String()
}

func sortedClasses(m map[string]float64) []string {
	classes := make([]string, 0, len(m))
	for class := range m {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
