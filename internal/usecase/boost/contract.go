package boost

import (
	"context"

	"github.com/kailas-cloud/boost/internal/domain"
)

// TokenCounter counts model tokens in text.
type TokenCounter interface {
	Count(text string) int
}

// UsageRecorder adds consumed tokens to the monthly counter.
type UsageRecorder interface {
	RecordTokens(ctx context.Context, tokens int64) (int64, error)
}

// Completer is the language model used to write the boost.
type Completer interface {
	Complete(ctx context.Context, text string) (domain.CompletionResult, error)
}
