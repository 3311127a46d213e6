package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerProvider wraps a ChatCompletionProvider with a circuit breaker so a
// persistently failing provider is skipped quickly instead of burning the
// per-call timeout on every cascade attempt.
type BreakerProvider struct {
	next    ChatCompletionProvider
	breaker *gobreaker.CircuitBreaker
}

type completion struct {
	content string
	usage   Usage
}

// NewBreakerProvider wraps next. The breaker opens after 5 consecutive
// failures and probes again after 30 seconds.
func NewBreakerProvider(name string, next ChatCompletionProvider) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Complete implements ChatCompletionProvider.
func (p *BreakerProvider) Complete(ctx context.Context, model string, messages []Message, params CallParams) (string, Usage, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		content, usage, err := p.next.Complete(ctx, model, messages, params)
		if err != nil {
			return nil, err
		}
		return completion{content: content, usage: usage}, nil
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("provider %s: %w", p.breaker.Name(), err)
	}

	c := result.(completion)
	return c.content, c.usage, nil
}
