package validation

import (
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/porticoai/portico/internal/models"
)

func newTestValidator(benchmark map[string]float64) *Validator {
	return NewValidator(benchmark, slog.New(slog.DiscardHandler))
}

func TestExtractNumericTokens(t *testing.T) {
	text := "Allocate 60% to stocks, hold $12,500.50 in cash, and keep a ratio of 1.5 between equity and debt."
	tokens := ExtractNumericTokens(text)

	var byKind = map[TokenKind][]float64{}
	for _, token := range tokens {
		byKind[token.Kind] = append(byKind[token.Kind], token.Value)
	}

	if len(byKind[TokenPercentage]) != 1 || byKind[TokenPercentage][0] != 60 {
		t.Errorf("percentages = %v, want [60]", byKind[TokenPercentage])
	}
	if len(byKind[TokenCurrency]) != 1 || byKind[TokenCurrency][0] != 12500.50 {
		t.Errorf("currency = %v, want [12500.50]", byKind[TokenCurrency])
	}
	if len(byKind[TokenRatio]) != 1 || byKind[TokenRatio][0] != 1.5 {
		t.Errorf("ratios = %v, want [1.5]", byKind[TokenRatio])
	}
}

func TestRangeViolations(t *testing.T) {
	tests := []struct {
		name     string
		token    NumericToken
		wantFlag bool
	}{
		{"valid percentage", NumericToken{Kind: TokenPercentage, Raw: "60%", Value: 60}, false},
		{"percentage over 100", NumericToken{Kind: TokenPercentage, Raw: "150%", Value: 150}, true},
		{"negative percentage", NumericToken{Kind: TokenPercentage, Raw: "-5%", Value: -5}, true},
		{"negative ratio", NumericToken{Kind: TokenRatio, Raw: "ratio of -2", Value: -2}, true},
		{"large currency unbounded", NumericToken{Kind: TokenCurrency, Raw: "$9000000", Value: 9000000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rangeViolation(tt.token) != ""
			if got != tt.wantFlag {
				t.Errorf("rangeViolation(%v) flagged = %v, want %v", tt.token, got, tt.wantFlag)
			}
		})
	}
}

func TestExtractAllocation(t *testing.T) {
	text := "I suggest stocks: 60%, bonds 30% and cash: 10%. Equities 99% is a duplicate mention."
	alloc := ExtractAllocation(text)

	want := map[string]float64{"stocks": 60, "bonds": 30, "cash": 10}
	if len(alloc) != len(want) {
		t.Fatalf("alloc = %v, want %v", alloc, want)
	}
	for class, value := range want {
		if alloc[class] != value {
			t.Errorf("alloc[%s] = %v, want %v", class, alloc[class], value)
		}
	}
}

func TestExtractAllocationVocabularyVariants(t *testing.T) {
	text := "Fixed income: 40%, real estate 20%, cryptocurrency: 5%"
	alloc := ExtractAllocation(text)
	for _, class := range []string{"bonds", "real_estate", "crypto"} {
		if _, ok := alloc[class]; !ok {
			t.Errorf("alloc missing canonical class %s: %v", class, alloc)
		}
	}
}

func TestRepairAllocationRescalesOversum(t *testing.T) {
	alloc := map[string]float64{"stocks": 60, "bonds": 30, "cash": 20}
	repaired, notes := RepairAllocation(alloc)

	sum := 0.0
	for _, v := range repaired {
		sum += v
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("repaired sum = %v, want 100±0.01", sum)
	}
	// Relative ratios are preserved: 60:30 stays 2:1.
	if math.Abs(repaired["stocks"]/repaired["bonds"]-2.0) > 0.001 {
		t.Errorf("ratio stocks/bonds = %v, want 2.0", repaired["stocks"]/repaired["bonds"])
	}
	if len(notes) == 0 {
		t.Error("expected a rescale note")
	}
}

func TestRepairAllocationZeroesNegatives(t *testing.T) {
	repaired, notes := RepairAllocation(map[string]float64{"stocks": -10, "bonds": 110})

	if repaired["stocks"] != 0 {
		t.Errorf("stocks = %v, want 0", repaired["stocks"])
	}
	if math.Abs(repaired["bonds"]-100) > 0.01 {
		t.Errorf("bonds = %v, want 100", repaired["bonds"])
	}
	if len(notes) < 2 {
		t.Errorf("notes = %v, want zeroing plus rescale", notes)
	}
}

func TestRepairAllocationLeavesValidUntouched(t *testing.T) {
	repaired, notes := RepairAllocation(map[string]float64{"stocks": 60, "bonds": 30, "cash": 10})
	if len(notes) != 0 {
		t.Errorf("notes = %v, want none for a valid allocation", notes)
	}
	if repaired["stocks"] != 60 || repaired["bonds"] != 30 || repaired["cash"] != 10 {
		t.Errorf("repaired = %v, want unchanged", repaired)
	}
}

func TestRepairAllocationSmallCorrection(t *testing.T) {
	repaired, notes := RepairAllocation(map[string]float64{"stocks": 60, "bonds": 30, "cash": 11})
	sum := 0.0
	for _, v := range repaired {
		sum += v
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("sum = %v, want 100", sum)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "small correction") {
		t.Errorf("notes = %v, want one small-correction note", notes)
	}
}

func TestRepairAllocationAllZero(t *testing.T) {
	repaired, notes := RepairAllocation(map[string]float64{"stocks": 0, "bonds": 0})
	if len(notes) != 1 || !strings.Contains(notes[0], "cannot rescale") {
		t.Errorf("notes = %v, want cannot-rescale note", notes)
	}
	if repaired["stocks"] != 0 || repaired["bonds"] != 0 {
		t.Errorf("repaired = %v, want zeros preserved", repaired)
	}
}

func TestDetectAnomalies(t *testing.T) {
	v := newTestValidator(nil)

	tests := []struct {
		name  string
		alloc map[string]float64
		want  []string
	}{
		{
			name:  "high cash",
			alloc: map[string]float64{"stocks": 40, "bonds": 25, "cash": 35},
			want:  []string{"cash allocation"},
		},
		{
			name:  "too few classes",
			alloc: map[string]float64{"stocks": 50, "bonds": 50},
			want:  []string{"asset classes"},
		},
		{
			name:  "single concentration",
			alloc: map[string]float64{"stocks": 65, "bonds": 25, "cash": 10},
			want:  []string{"unusually concentrated"},
		},
		{
			name:  "over concentration limit",
			alloc: map[string]float64{"stocks": 80, "bonds": 15, "cash": 5},
			want:  []string{"concentration limit"},
		},
		{
			name:  "balanced portfolio clean",
			alloc: map[string]float64{"stocks": 50, "bonds": 30, "cash": 20},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anomalies := v.detectAnomalies(tt.alloc)
			if tt.want == nil {
				if len(anomalies) != 0 {
					t.Errorf("anomalies = %v, want none", anomalies)
				}
				return
			}
			for _, fragment := range tt.want {
				found := false
				for _, a := range anomalies {
					if strings.Contains(a, fragment) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("anomalies %v missing fragment %q", anomalies, fragment)
				}
			}
		})
	}
}

func TestDetectAnomaliesBenchmarkDrift(t *testing.T) {
	v := newTestValidator(map[string]float64{"stocks": 60, "bonds": 30, "cash": 10})
	anomalies := v.detectAnomalies(map[string]float64{"stocks": 30, "bonds": 50, "cash": 20})

	found := false
	for _, a := range anomalies {
		if strings.Contains(a, "benchmark") {
			found = true
		}
	}
	if !found {
		t.Errorf("anomalies = %v, want a benchmark drift entry", anomalies)
	}
}

func TestValidateAppendsNotesToReasoning(t *testing.T) {
	v := newTestValidator(nil)
	result := &models.DecisionResult{
		Decision:  models.Decision{Action: models.ActionAllocate},
		Reasoning: "Allocate stocks: 60%, bonds: 30%, cash: 20% for balanced growth.",
	}

	report := v.Validate(result)

	if report.Allocation == nil {
		t.Fatal("expected an extracted allocation")
	}
	sum := 0.0
	for _, value := range report.Allocation {
		sum += value
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("repaired allocation sum = %v, want 100", sum)
	}
	if !report.Repaired {
		t.Error("expected Repaired = true for a 110% allocation")
	}
	if !strings.Contains(result.Reasoning, "Validation notes:") {
		t.Error("reasoning missing appended validation notes")
	}
	if len(result.Warnings) == 0 {
		t.Error("warnings not propagated to the decision result")
	}
	if result.Decision.Action != models.ActionAllocate {
		t.Error("validation must never change the decision action")
	}
}

func TestValidateCleanReasoningUntouched(t *testing.T) {
	v := newTestValidator(nil)
	original := "Hold current positions and review next quarter."
	result := &models.DecisionResult{Reasoning: original}

	report := v.Validate(result)

	if result.Reasoning != original {
		t.Errorf("reasoning changed: %q", result.Reasoning)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", report.Warnings)
	}
}
