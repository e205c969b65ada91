package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreUnavailable signals that the counter store could not be reached.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrDailyLimitExceeded signals a client exhausted its daily request quota.
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	// ErrMonthlyLimitExceeded signals the global monthly token quota is spent.
	ErrMonthlyLimitExceeded = errors.New("monthly token limit exceeded")
	// ErrTokenAccounting signals that token usage could not be recorded.
	ErrTokenAccounting = errors.New("token accounting failed")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLLMProviderError signals a failure of the language model provider.
	ErrLLMProviderError = errors.New("llm provider error")
)

// DailyLimitError wraps ErrDailyLimitExceeded with the time until the client may retry.
type DailyLimitError struct {
	ResetAfter time.Duration
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("%s: resets in %s", ErrDailyLimitExceeded.Error(), e.ResetAfter)
}

func (e *DailyLimitError) Unwrap() error { return ErrDailyLimitExceeded }

// MonthlyLimitError wraps ErrMonthlyLimitExceeded with the usage that triggered it.
type MonthlyLimitError struct {
	Current int64
	Limit   int64
}

func (e *MonthlyLimitError) Error() string {
	return fmt.Sprintf("%s: %d of %d tokens used", ErrMonthlyLimitExceeded.Error(), e.Current, e.Limit)
}

func (e *MonthlyLimitError) Unwrap() error { return ErrMonthlyLimitExceeded }
