package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boost/internal/domain"
	"github.com/kailas-cloud/boost/internal/domain/quota"
	domusage "github.com/kailas-cloud/boost/internal/domain/usage"
	"github.com/kailas-cloud/boost/internal/metrics"
)

// Service reports quota usage and records consumed tokens.
type Service struct {
	store  CounterStore
	limits quota.Limits
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Service with the compiled-in limits.
func New(store CounterStore, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		limits: quota.DefaultLimits(),
		now:    time.Now,
		logger: logger,
	}
}

// WithLimits overrides the quota limits.
func (s *Service) WithLimits(l quota.Limits) *Service {
	s.limits = l
	return s
}

// WithClock overrides the time source used for counter keys.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats returns a read-only snapshot of client's daily requests and the global
// monthly tokens. Unlike the gate there is no fallback: store failures are returned.
func (s *Service) Stats(ctx context.Context, client string) (domusage.Report, error) {
	if !s.store.Available() {
		return domusage.Report{}, fmt.Errorf("usage stats: %w", domain.ErrStoreUnavailable)
	}

	now := s.now()

	daily, _, err := s.store.Get(ctx, quota.DailyKey(client, now))
	if err != nil {
		metrics.CounterStoreErrorsTotal.WithLabelValues("stats_daily").Inc()
		return domusage.Report{}, fmt.Errorf("usage stats daily: %w", err)
	}

	monthly, _, err := s.store.Get(ctx, quota.MonthlyKey(now))
	if err != nil {
		metrics.CounterStoreErrorsTotal.WithLabelValues("stats_monthly").Inc()
		return domusage.Report{}, fmt.Errorf("usage stats monthly: %w", err)
	}

	return domusage.NewReport(
		client,
		domusage.NewWindow(daily, s.limits.DailyRequests),
		domusage.NewWindow(monthly, s.limits.MonthlyTokens),
	), nil
}

// RecordTokens adds tokens to this month's global counter and refreshes its
// cleanup TTL. Errors wrap domain.ErrTokenAccounting.
func (s *Service) RecordTokens(ctx context.Context, tokens int64) (int64, error) {
	if tokens < 0 {
		return 0, fmt.Errorf("%w: negative token count %d: %w", domain.ErrTokenAccounting, tokens, domain.ErrInvalidInput)
	}
	if tokens == 0 {
		return 0, nil
	}
	if !s.store.Available() {
		return 0, fmt.Errorf("%w: %w", domain.ErrTokenAccounting, domain.ErrStoreUnavailable)
	}

	key := quota.MonthlyKey(s.now())
	total, err := s.store.IncrementAndExpire(ctx, key, tokens, s.limits.MonthlyKeyTTL)
	if err != nil {
		metrics.CounterStoreErrorsTotal.WithLabelValues("record_tokens").Inc()
		return 0, fmt.Errorf("%w: %w", domain.ErrTokenAccounting, err)
	}

	metrics.TokensRecordedTotal.Add(float64(tokens))
	metrics.MonthlyTokensUsed.Set(float64(total))
	s.logger.Debug("Tokens recorded",
		zap.String("key", key),
		zap.Int64("tokens", tokens),
		zap.Int64("monthly_total", total),
	)
	return total, nil
}
