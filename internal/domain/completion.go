package domain

import "context"

// Completer is the language model contract between layers.
type Completer interface {
	Complete(ctx context.Context, text string) (CompletionResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CompletionResult carries generated text and provider-reported token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
