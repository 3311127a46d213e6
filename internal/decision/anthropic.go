package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/porticoai/portico/internal/inference"
	"github.com/porticoai/portico/internal/models"
)

// AnthropicProvider adapts the Anthropic messages API.
type AnthropicProvider struct {
	client          anthropic.Client
	inferenceLogger *inference.Logger
}

// NewAnthropicProvider creates a provider from an API key. inferenceLogger
// may be nil.
func NewAnthropicProvider(apiKey string, inferenceLogger *inference.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		inferenceLogger: inferenceLogger,
	}
}

// Complete implements ChatCompletionProvider.
func (p *AnthropicProvider) Complete(ctx context.Context, model string, messages []Message, params CallParams) (string, Usage, error) {
	var system []anthropic.TextBlockParam
	var turns []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
			continue
		}
		turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(params.Temperature)),
		System:      system,
		Messages:    turns,
	}

	startTime := time.Now()
	message, err := p.client.Messages.New(ctx, req)
	latency := time.Since(startTime)

	usage := Usage{}
	if err == nil {
		usage.InputTokens = int(message.Usage.InputTokens)
		usage.OutputTokens = int(message.Usage.OutputTokens)
	}

	if p.inferenceLogger != nil {
		p.inferenceLogger.Record(ctx, inference.Call{
			Provider:     "anthropic",
			Model:        model,
			Operation:    models.OpDecision,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			Latency:      latency,
			Err:          err,
		})
	}

	if err != nil {
		return "", Usage{}, fmt.Errorf("anthropic api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", Usage{}, fmt.Errorf("no response from anthropic")
	}

	return message.Content[0].Text, usage, nil
}
