package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boost/internal/domain"
	"github.com/kailas-cloud/boost/internal/domain/quota"
	logpkg "github.com/kailas-cloud/boost/internal/logger"
	"github.com/kailas-cloud/boost/internal/metrics"
)

// StoreFailurePolicy defines gate behavior when the counter store cannot be used.
type StoreFailurePolicy string

const (
	// FailOpen lets the request through without quota enforcement.
	FailOpen StoreFailurePolicy = "open"
	// FailClosed rejects the request with domain.ErrStoreUnavailable.
	FailClosed StoreFailurePolicy = "closed"
)

// Store operations, used to classify failures in logs and metrics.
const (
	opUnavailable    = "unavailable"
	opReadDaily      = "read_daily"
	opReadMonthly    = "read_monthly"
	opTTLDaily       = "ttl_daily"
	opIncrementDaily = "increment_daily"
)

// Gate enforces the daily per-client and monthly global quotas in front of a
// protected operation. It keeps no quota state of its own.
type Gate struct {
	store  CounterStore
	limits quota.Limits
	policy StoreFailurePolicy
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Gate with the compiled-in limits and the fail-open policy.
func New(store CounterStore, logger *zap.Logger) *Gate {
	return &Gate{
		store:  store,
		limits: quota.DefaultLimits(),
		policy: FailOpen,
		now:    time.Now,
		logger: logger,
	}
}

// WithPolicy sets the store failure policy.
func (g *Gate) WithPolicy(p StoreFailurePolicy) *Gate {
	g.policy = p
	return g
}

// WithLimits overrides the quota limits.
func (g *Gate) WithLimits(l quota.Limits) *Gate {
	g.limits = l
	return g
}

// WithClock overrides the time source used for counter keys.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Policy returns the configured store failure policy.
func (g *Gate) Policy() StoreFailurePolicy { return g.policy }

// Admit checks both quotas for client and, if allowed, counts the request.
// It returns *domain.DailyLimitError or *domain.MonthlyLimitError on denial.
// Under FailOpen, store failures are logged and the request is admitted.
func (g *Gate) Admit(ctx context.Context, client string) error {
	log := logpkg.FromContextOr(ctx, g.logger)

	if !g.store.Available() {
		return g.storeFailure(log, client, opUnavailable, domain.ErrStoreUnavailable)
	}

	now := g.now()
	dailyKey := quota.DailyKey(client, now)

	dailyCount, _, err := g.store.Get(ctx, dailyKey)
	if err != nil {
		return g.storeFailure(log, client, opReadDaily, err)
	}

	daily := quota.EvaluateDaily(dailyCount, g.limits.DailyRequests)
	if !daily.Allowed() {
		metrics.QuotaDecisionsTotal.WithLabelValues(string(quota.KindDailyExceeded)).Inc()
		return &domain.DailyLimitError{ResetAfter: g.dailyReset(ctx, log, client, dailyKey)}
	}

	// Monthly counter is only read when the daily check passes.
	monthlyTokens, _, err := g.store.Get(ctx, quota.MonthlyKey(now))
	if err != nil {
		return g.storeFailure(log, client, opReadMonthly, err)
	}

	decision := quota.Combine(daily, quota.EvaluateMonthly(monthlyTokens, g.limits.MonthlyTokens))
	if !decision.Allowed() {
		metrics.QuotaDecisionsTotal.WithLabelValues(string(decision.Kind)).Inc()
		return &domain.MonthlyLimitError{Current: decision.Current, Limit: decision.Limit}
	}

	if _, err := g.store.IncrementAndExpire(ctx, dailyKey, 1, g.limits.DailyWindow); err != nil {
		return g.storeFailure(log, client, opIncrementDaily, err)
	}

	metrics.QuotaDecisionsTotal.WithLabelValues("allowed").Inc()
	return nil
}

// Guard runs op behind the gate and returns its result unchanged when admitted.
func Guard[T any](ctx context.Context, g *Gate, client string, op func(context.Context) (T, error)) (T, error) {
	if err := g.Admit(ctx, client); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}

// dailyReset returns the seconds until the daily key expires, falling back to
// the full window when the TTL cannot be read.
func (g *Gate) dailyReset(ctx context.Context, log *zap.Logger, client, key string) time.Duration {
	ttl, found, err := g.store.TimeToLive(ctx, key)
	if err != nil {
		metrics.CounterStoreErrorsTotal.WithLabelValues(opTTLDaily).Inc()
		log.Warn("Failed to read daily counter TTL",
			zap.String("client", client),
			zap.String("store_op", opTTLDaily),
			zap.Error(err),
		)
		return g.limits.DailyWindow
	}
	if !found {
		return g.limits.DailyWindow
	}
	return ttl
}

func (g *Gate) storeFailure(log *zap.Logger, client, op string, err error) error {
	metrics.CounterStoreErrorsTotal.WithLabelValues(op).Inc()

	class := "store_unavailable"
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		class = "store_data"
	}

	if g.policy == FailClosed {
		metrics.QuotaDecisionsTotal.WithLabelValues("store_error").Inc()
		log.Error("Quota check failed, rejecting request",
			zap.String("client", client),
			zap.String("store_op", op),
			zap.String("error_class", class),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return fmt.Errorf("quota check %s: %w", op, err)
		}
		return fmt.Errorf("quota check %s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}

	metrics.QuotaDecisionsTotal.WithLabelValues("fail_open").Inc()
	log.Warn("Quota check skipped, serving request without enforcement",
		zap.String("client", client),
		zap.String("store_op", op),
		zap.String("error_class", class),
		zap.Error(err),
	)
	return nil
}
