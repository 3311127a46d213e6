package decision

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/porticoai/portico/internal/inference"
	"github.com/porticoai/portico/internal/models"
)

// OpenAIProvider adapts the OpenAI chat completion API.
type OpenAIProvider struct {
	client          *openai.Client
	inferenceLogger *inference.Logger
}

// NewOpenAIProvider creates a provider from an API key. inferenceLogger may
// be nil.
func NewOpenAIProvider(apiKey string, inferenceLogger *inference.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		client:          openai.NewClient(apiKey),
		inferenceLogger: inferenceLogger,
	}
}

// Complete implements ChatCompletionProvider.
func (p *OpenAIProvider) Complete(ctx context.Context, model string, messages []Message, params CallParams) (string, Usage, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	startTime := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Messages:    chatMessages,
	})
	latency := time.Since(startTime)

	usage := Usage{}
	if err == nil {
		usage.InputTokens = resp.Usage.PromptTokens
		usage.OutputTokens = resp.Usage.CompletionTokens
	}

	if p.inferenceLogger != nil {
		p.inferenceLogger.Record(ctx, inference.Call{
			Provider:     "openai",
			Model:        model,
			Operation:    models.OpDecision,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			Latency:      latency,
			Err:          err,
		})
	}

	if err != nil {
		return "", Usage{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, usage, nil
}
