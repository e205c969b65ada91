// Package boost turns resume text into an encouraging essay and accounts
// for the tokens it spends.
package boost

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boost/internal/domain"
	logpkg "github.com/kailas-cloud/boost/internal/logger"
	"github.com/kailas-cloud/boost/internal/metrics"
)

// MaxInputChars caps the resume text sent to the model.
const MaxInputChars = 2000

const truncationSuffix = "..."

const promptTemplate = `Analyze this resume and write a genuine, sincere 300-500 word essay that focuses on the person's underlying qualities, character strengths, and their professional evolution.

Important Guidelines:
1. DO NOT repeat or directly reference specific roles, titles, or achievements from the resume.
2. Instead, INFER and discuss their personal qualities: adaptability, problem-solving, leadership potential, growth mindset and resilience.
3. Take a "big picture" view of their career trajectory and what it reveals about them.
4. Make them feel genuinely good about how far they've come and their potential for future growth.

Resume to analyze:
%s

Remember: Focus on WHO they are and WHAT they're capable of, not just WHAT they've done.`

// Result is a generated boost with its token accounting.
type Result struct {
	Message      string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns input plus output tokens.
func (r Result) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Service generates boosts.
type Service struct {
	completer Completer
	tokens    TokenCounter
	usage     UsageRecorder
	logger    *zap.Logger
}

// New creates a Service.
func New(completer Completer, tokens TokenCounter, usage UsageRecorder, logger *zap.Logger) *Service {
	return &Service{
		completer: completer,
		tokens:    tokens,
		usage:     usage,
		logger:    logger,
	}
}

// Generate writes a boost for text. Token usage is recorded best-effort:
// a recording failure is logged and counted but never fails the call.
func (s *Service) Generate(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}

	inputTokens := s.tokens.Count(text)

	completion, err := s.completer.Complete(ctx, fmt.Sprintf(promptTemplate, Truncate(text, MaxInputChars)))
	if err != nil {
		return Result{}, fmt.Errorf("generate boost: %w", err)
	}

	res := Result{
		Message:      completion.Text,
		InputTokens:  inputTokens,
		OutputTokens: s.tokens.Count(completion.Text),
	}

	s.recordUsage(ctx, res.TotalTokens())
	return res, nil
}

func (s *Service) recordUsage(ctx context.Context, tokens int) {
	if _, err := s.usage.RecordTokens(ctx, int64(tokens)); err != nil {
		metrics.TokenAccountingFailuresTotal.Inc()
		logpkg.FromContextOr(ctx, s.logger).Warn("Token usage not recorded",
			zap.Int("tokens", tokens),
			zap.Error(err),
		)
	}
}

// Truncate shortens text to at most limit characters and marks the cut
// with "...". Text within the limit is returned unchanged.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + truncationSuffix
}
