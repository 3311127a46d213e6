package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/porticoai/portico/internal/models"
	"github.com/porticoai/portico/internal/validation"
)

// Stage names the nodes of the advice state machine.
type Stage string

const (
	StageRetrieveContext Stage = "retrieve_context"
	StageMakeDecision    Stage = "make_decision"
	StageHandleFallback  Stage = "handle_fallback"
	StageEnd             Stage = "end"
)

// ContextRetriever is the retrieval stage collaborator.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, profile models.UserProfile, portfolio models.PortfolioState, market models.MarketState, explicitK int) (*models.RetrievalResult, error)
}

// DecisionMaker is the reasoning stage collaborator.
type DecisionMaker interface {
	Decide(ctx context.Context, query string, contexts []models.RetrievedContext, sources []string, profile models.UserProfile, portfolio models.PortfolioState, market models.MarketState) (models.DecisionResult, error)
}

// OutputValidator post-processes a decision in place. It may append warnings
// but never fails.
type OutputValidator interface {
	Validate(result *models.DecisionResult) validation.Report
}

// AdviceRecorder persists one completed run for auditing. Implementations
// must tolerate being called with either outcome.
type AdviceRecorder interface {
	RecordAdvice(ctx context.Context, log models.AdviceLog) error
}

// RunMetrics receives per-run and per-stage measurements.
type RunMetrics interface {
	RecordWorkflowRun(outcome string)
	RecordWorkflowStage(stage string, duration time.Duration)
}

// Request carries the caller inputs for one advice run. ExplicitK > 0 pins
// the retrieval document count and skips volatility sizing.
type Request struct {
	Query     string
	Profile   models.UserProfile
	Portfolio models.PortfolioState
	Market    models.MarketState
	ExplicitK int
}

// Engine drives one request through retrieve → decide → end, detouring to a
// fallback stage on any failure. Run always returns a well-formed result.
type Engine struct {
	retriever ContextRetriever
	maker     DecisionMaker
	validator OutputValidator
	recorder  AdviceRecorder // optional
	metrics   RunMetrics     // optional
	logger    *slog.Logger
}

// NewEngine wires the workflow. validator, recorder and metrics may be nil.
func NewEngine(retriever ContextRetriever, maker DecisionMaker, validator OutputValidator, recorder AdviceRecorder, metrics RunMetrics, logger *slog.Logger) *Engine {
	return &Engine{
		retriever: retriever,
		maker:     maker,
		validator: validator,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run executes the state machine for one request. It never returns an error:
// every failure path terminates in the fallback result. The returned RunID
// correlates logs, audit rows and the response.
func (e *Engine) Run(ctx context.Context, req Request) (models.DecisionResult, string) {
	state := &models.WorkflowState{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Query:     req.Query,
		Profile:   req.Profile,
		Portfolio: req.Portfolio,
		Market:    req.Market,
	}

	logger := e.logger.With("run_id", state.RunID)
	logger.Info("advice workflow started", "query_len", len(req.Query))

	stage := StageRetrieveContext
	for stage != StageEnd {
		next := e.step(ctx, stage, state, req, logger)
		stage = next
	}

	result := state.Result()
	if e.validator != nil && !state.ShouldFallback {
		e.validator.Validate(&result)
	}

	outcome := "ok"
	if state.ShouldFallback {
		outcome = "fallback"
	}
	if e.metrics != nil {
		e.metrics.RecordWorkflowRun(outcome)
	}

	duration := time.Since(state.StartedAt)
	logger.Info("advice workflow finished",
		"outcome", outcome,
		"action", string(result.Decision.Action),
		"confidence", result.Confidence,
		"duration_ms", duration.Milliseconds())

	e.record(ctx, state, result, duration)

	return result, state.RunID
}

// step executes one stage and returns the next. Transitions dispatch on the
// fallback flag, never on in-flight errors.
func (e *Engine) step(ctx context.Context, stage Stage, state *models.WorkflowState, req Request, logger *slog.Logger) Stage {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordWorkflowStage(string(stage), time.Since(start))
		}
	}()

	switch stage {
	case StageRetrieveContext:
		e.retrieveContext(ctx, state, req, logger)
		if state.ShouldFallback {
			return StageHandleFallback
		}
		return StageMakeDecision

	case StageMakeDecision:
		e.makeDecision(ctx, state, req, logger)
		if state.ShouldFallback {
			return StageHandleFallback
		}
		return StageEnd

	case StageHandleFallback:
		e.handleFallback(state, logger)
		return StageEnd

	default:
		return StageEnd
	}
}

func (e *Engine) retrieveContext(ctx context.Context, state *models.WorkflowState, req Request, logger *slog.Logger) {
	if ctx.Err() != nil {
		state.Fail("request cancelled before retrieval: " + ctx.Err().Error())
		return
	}

	result, err := e.retriever.Retrieve(ctx, req.Query, req.Profile, req.Portfolio, req.Market, req.ExplicitK)
	if err != nil {
		logger.Error("retrieval stage failed", "error", err)
		state.Fail(err.Error())
		return
	}

	state.Retrieval = result
	state.Contexts = result.Contexts
	state.Sources = result.Sources()
}

func (e *Engine) makeDecision(ctx context.Context, state *models.WorkflowState, req Request, logger *slog.Logger) {
	if ctx.Err() != nil {
		state.Fail("request cancelled before decision: " + ctx.Err().Error())
		return
	}

	result, err := e.maker.Decide(ctx, req.Query, state.Contexts, state.Sources, req.Profile, req.Portfolio, req.Market)
	if err != nil {
		logger.Error("decision stage failed", "error", err)
		state.Fail(err.Error())
		return
	}

	state.Decision = &result.Decision
	state.Reasoning = result.Reasoning
	state.Recommendations = result.Recommendations
	state.Confidence = result.Confidence
	state.SourcesUsed = result.SourcesUsed
	state.Warnings = result.Warnings
}

// handleFallback is the single safe terminal for every failure path: the
// caller always receives a structurally complete, zero-confidence result.
func (e *Engine) handleFallback(state *models.WorkflowState, logger *slog.Logger) {
	logger.Warn("routing to fallback", "error", state.Err)

	state.Decision = &models.Decision{
		Action:  models.ActionNoAction,
		Details: map[string]interface{}{"reason": state.Err},
	}
	state.Reasoning = "Unable to produce a recommendation: " + state.Err
	state.Recommendations = []models.Recommendation{
		{
			Type:      "info",
			Rationale: "The advisory pipeline failed and no recommendation could be generated. Please retry later.",
		},
	}
	state.Confidence = 0.0
	state.SourcesUsed = []string{}
}

// record persists the run for auditing. Failures are logged, never surfaced.
func (e *Engine) record(ctx context.Context, state *models.WorkflowState, result models.DecisionResult, duration time.Duration) {
	if e.recorder == nil {
		return
	}

	durationMs := int(duration.Milliseconds())
	entry := models.AdviceLog{
		RunID:        state.RunID,
		Query:        state.Query,
		RiskProfile:  string(state.Profile.RiskTolerance.Normalize()),
		Action:       string(result.Decision.Action),
		Confidence:   result.Confidence,
		Fallback:     state.ShouldFallback,
		ContextCount: len(state.Contexts),
		DurationMs:   &durationMs,
	}
	entry.ErrorMessage = state.Err

	// The audit row outlives request cancellation.
	if err := e.recorder.RecordAdvice(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Error("failed to record advice run", "run_id", state.RunID, "error", err)
	}
}
