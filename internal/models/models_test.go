package models

import (
	"testing"
	"time"
)

func TestRiskTolerance_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		input    RiskTolerance
		expected RiskTolerance
	}{
		{"conservative kept", RiskConservative, RiskConservative},
		{"moderate kept", RiskModerate, RiskModerate},
		{"aggressive kept", RiskAggressive, RiskAggressive},
		{"empty defaults to moderate", RiskTolerance(""), RiskModerate},
		{"unknown defaults to moderate", RiskTolerance("yolo"), RiskModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.Normalize(); got != tt.expected {
				t.Errorf("Normalize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecisionAction_IsValid(t *testing.T) {
	valid := []DecisionAction{ActionBuy, ActionSell, ActionHold, ActionRebalance, ActionAllocate, ActionNoAction}
	for _, a := range valid {
		if !a.IsValid() {
			t.Errorf("expected %q to be valid", a)
		}
	}

	if DecisionAction("short").IsValid() {
		t.Error("expected unknown action to be invalid")
	}
}

func TestWorkflowState_Fail(t *testing.T) {
	state := &WorkflowState{Query: "should I rebalance?"}

	state.Fail("retriever unavailable")

	if !state.ShouldFallback {
		t.Error("expected ShouldFallback to be set")
	}
	if state.Err != "retriever unavailable" {
		t.Errorf("unexpected error message: %q", state.Err)
	}
}

func TestWorkflowState_Result_Defaults(t *testing.T) {
	state := &WorkflowState{StartedAt: time.Now()}

	result := state.Result()

	if result.Decision.Action != ActionNoAction {
		t.Errorf("expected no_action default, got %q", result.Decision.Action)
	}
	if result.Recommendations == nil {
		t.Error("recommendations should never be nil")
	}
	if result.SourcesUsed == nil {
		t.Error("sources should never be nil")
	}
}

func TestRetrievalResult_Sources(t *testing.T) {
	result := RetrievalResult{
		Contexts: []RetrievedContext{
			{Text: "a", SourceID: "doc-1", Score: 0.9},
			{Text: "b", SourceID: "doc-2", Score: 0.7},
		},
	}

	sources := result.Sources()
	if len(sources) != 2 || sources[0] != "doc-1" || sources[1] != "doc-2" {
		t.Errorf("unexpected sources: %v", sources)
	}
}
