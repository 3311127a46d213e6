package models

// DecisionAction is the advisory verdict produced by the decision stage.
type DecisionAction string

const (
	ActionBuy       DecisionAction = "buy"
	ActionSell      DecisionAction = "sell"
	ActionHold      DecisionAction = "hold"
	ActionRebalance DecisionAction = "rebalance"
	ActionAllocate  DecisionAction = "allocate"
	ActionNoAction  DecisionAction = "no_action"
)

// IsValid reports whether the action is one of the known verdicts.
func (a DecisionAction) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionRebalance, ActionAllocate, ActionNoAction:
		return true
	}
	return false
}

// Decision is the structured verdict plus any action-specific details.
type Decision struct {
	Action  DecisionAction         `json:"action"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Recommendation is a single actionable suggestion attached to a decision.
type Recommendation struct {
	Type      string                 `json:"type"` // e.g. "buy", "rebalance", "info"
	Asset     string                 `json:"asset,omitempty"`
	Rationale string                 `json:"rationale"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// DecisionResult is the final structured output returned to the caller.
// The workflow guarantees it is always fully populated, even on failure.
type DecisionResult struct {
	Decision        Decision         `json:"decision"`
	Reasoning       string           `json:"reasoning"`
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      float64          `json:"confidence"` // 0.0 - 1.0
	SourcesUsed     []string         `json:"sources_used"`
	Warnings        []string         `json:"warnings,omitempty"`
}
