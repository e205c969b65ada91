package chi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boost/internal/domain"
)

const (
	dailyLimitMessage   = "Daily limit exceeded. Please try again tomorrow."
	monthlyLimitMessage = "Monthly token limit exceeded. Please try again next month."
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var errorHandlers = []errorHandler{
	dailyLimitHandler,
	monthlyLimitHandler,
	sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest),
	sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway),
	sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrLLMProviderError,
		domain.ErrStoreUnavailable,
		domain.ErrDailyLimitExceeded,
		domain.ErrMonthlyLimitExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

// dailyLimitHandler answers 429 with the seconds until the client's daily counter expires.
func dailyLimitHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrDailyLimitExceeded) {
		return false
	}
	var resetAfter time.Duration
	var dle *domain.DailyLimitError
	if errors.As(err, &dle) {
		resetAfter = dle.ResetAfter
	}
	secs := resetSeconds(resetAfter)
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	writeJSON(w, http.StatusTooManyRequests, dailyLimitResponse{
		Error:             dailyLimitMessage,
		RemainingRequests: 0,
		ResetTime:         secs,
	})
	return true
}

// monthlyLimitHandler answers 429 with the global usage that tripped the limit.
func monthlyLimitHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrMonthlyLimitExceeded) {
		return false
	}
	resp := monthlyLimitResponse{Error: monthlyLimitMessage}
	var mle *domain.MonthlyLimitError
	if errors.As(err, &mle) {
		resp.CurrentUsage = mle.Current
		resp.Limit = mle.Limit
	}
	writeJSON(w, http.StatusTooManyRequests, resp)
	return true
}

func resetSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

func handleDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
