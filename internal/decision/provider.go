package decision

import "context"

// Message is one chat turn sent to a completion provider.
type Message struct {
	Role    string
	Content string
}

// Usage reports token consumption for one completion call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// CallParams bounds a single completion call.
type CallParams struct {
	Temperature float32
	MaxTokens   int
}

// ChatCompletionProvider sends a chat completion request to one model.
// Provider-specific failures (rate limit, invalid model, timeout) surface as
// plain errors; the cascade treats them all as "try the next candidate".
type ChatCompletionProvider interface {
	Complete(ctx context.Context, model string, messages []Message, params CallParams) (string, Usage, error)
}

const (
	// RoleSystem and RoleUser mirror the chat API role names.
	RoleSystem = "system"
	RoleUser   = "user"
)
