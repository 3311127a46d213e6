package models

import "time"

// WorkflowState is the single mutable aggregate threaded through every
// engine stage. It starts with only the four inputs populated, is enriched
// by retrieval and decision stages, and is discarded once the terminal
// stage has produced a DecisionResult.
type WorkflowState struct {
	RunID     string
	StartedAt time.Time

	// Read-only inputs.
	Query     string
	Profile   UserProfile
	Portfolio PortfolioState
	Market    MarketState

	// Retrieval enrichment.
	Contexts  []RetrievedContext
	Sources   []string
	Retrieval *RetrievalResult

	// Decision enrichment. Only the happy path may populate these while
	// ShouldFallback is unset; after the flag flips, only the fallback
	// stage writes them.
	Decision        *Decision
	Reasoning       string
	Recommendations []Recommendation
	Confidence      float64
	SourcesUsed     []string
	Warnings        []string

	Err            string
	ShouldFallback bool
}

// Fail records a stage failure and flips the fallback flag.
func (s *WorkflowState) Fail(reason string) {
	s.Err = reason
	s.ShouldFallback = true
}

// Result assembles the final DecisionResult from the enriched state.
func (s *WorkflowState) Result() DecisionResult {
	var decision Decision
	if s.Decision != nil {
		decision = *s.Decision
	} else {
		decision = Decision{Action: ActionNoAction}
	}

	recommendations := s.Recommendations
	if recommendations == nil {
		recommendations = []Recommendation{}
	}
	sources := s.SourcesUsed
	if sources == nil {
		sources = []string{}
	}

	return DecisionResult{
		Decision:        decision,
		Reasoning:       s.Reasoning,
		Recommendations: recommendations,
		Confidence:      s.Confidence,
		SourcesUsed:     sources,
		Warnings:        s.Warnings,
	}
}
