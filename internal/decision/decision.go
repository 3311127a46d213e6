package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/porticoai/portico/internal/classifier"
	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/models"
)

// Maker produces a structured investment decision from the user query and
// retrieved context. Model calls cascade: the task-appropriate model first,
// then each configured fallback, until one returns a usable completion.
type Maker struct {
	provider   ChatCompletionProvider
	classifier *classifier.Classifier
	cfg        config.ModelConfig
	logger     *slog.Logger
}

// NewMaker creates a decision maker. classify may be nil, in which case all
// queries route to the primary model.
func NewMaker(provider ChatCompletionProvider, classify *classifier.Classifier, cfg config.ModelConfig, logger *slog.Logger) *Maker {
	return &Maker{
		provider:   provider,
		classifier: classify,
		cfg:        cfg,
		logger:     logger,
	}
}

// Decide runs the model cascade and parses the first successful completion.
// Candidate failures are recorded as result warnings; an error is returned
// only when every candidate fails.
func (m *Maker) Decide(ctx context.Context, query string, contexts []models.RetrievedContext, sources []string, profile models.UserProfile, portfolio models.PortfolioState, market models.MarketState) (models.DecisionResult, error) {
	category := classifier.CategoryGeneral
	if m.classifier != nil {
		category = m.classifier.Classify(query)
	}

	candidates := m.modelCascade(category)
	if len(candidates) == 0 {
		return models.DecisionResult{}, fmt.Errorf("no decision models configured")
	}
	prompt := buildPrompt(query, contexts, profile, portfolio, market)
	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: prompt},
	}
	params := CallParams{
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
	}

	var cascadeWarnings []string
	for _, model := range candidates {
		content, usage, err := m.completeWithTimeout(ctx, model, messages, params)
		if err != nil {
			m.logger.Warn("decision model failed, trying next candidate",
				"model", model,
				"category", string(category),
				"error", err)
			cascadeWarnings = append(cascadeWarnings, fmt.Sprintf("model %s failed: %v", model, err))
			if ctx.Err() != nil {
				return models.DecisionResult{}, ctx.Err()
			}
			continue
		}

		result, parseWarnings := parseDecisionResponse(content)
		result.Warnings = append(cascadeWarnings, parseWarnings...)
		result.SourcesUsed = intersectSources(result.SourcesUsed, sources)

		m.logger.Info("decision produced",
			"model", model,
			"category", string(category),
			"action", string(result.Decision.Action),
			"confidence", result.Confidence,
			"tokens", usage.Total(),
			"prior_failures", len(cascadeWarnings))

		return result, nil
	}

	return models.DecisionResult{}, fmt.Errorf("all %d decision models failed: %s", len(candidates), cascadeWarnings[len(cascadeWarnings)-1])
}

// completeWithTimeout bounds a single candidate call so one slow model cannot
// starve the rest of the cascade.
func (m *Maker) completeWithTimeout(ctx context.Context, model string, messages []Message, params CallParams) (string, Usage, error) {
	timeout := m.cfg.CallTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.provider.Complete(callCtx, model, messages, params)
}

// modelCascade orders candidate models for a task category: the routed model
// first, then the configured fallbacks, with duplicates removed.
func (m *Maker) modelCascade(category classifier.Category) []string {
	first := m.cfg.Primary
	if category == classifier.CategoryMath && m.cfg.Numeric != "" {
		first = m.cfg.Numeric
	}

	seen := map[string]bool{}
	cascade := make([]string, 0, 1+len(m.cfg.Fallbacks))
	for _, model := range append([]string{first}, m.cfg.Fallbacks...) {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true
		cascade = append(cascade, model)
	}
	return cascade
}

// intersectSources keeps only cited sources that were actually retrieved,
// preserving citation order. Models occasionally invent source identifiers.
func intersectSources(cited, retrieved []string) []string {
	if len(cited) == 0 {
		return cited
	}
	valid := make(map[string]bool, len(retrieved))
	for _, s := range retrieved {
		valid[s] = true
	}
	kept := make([]string, 0, len(cited))
	for _, s := range cited {
		if valid[s] {
			kept = append(kept, s)
		}
	}
	return kept
}
