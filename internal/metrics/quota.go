package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota gate Prometheus metrics.
var (
	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boost",
			Name:      "quota_decisions_total",
			Help:      "Rate limit gate decisions",
		},
		[]string{"decision"}, // allowed, daily_exceeded, monthly_exceeded, fail_open, store_error
	)

	CounterStoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boost",
			Name:      "counter_store_errors_total",
			Help:      "Counter store failures seen by the gate and reporter",
		},
		[]string{"op"},
	)

	CounterStoreAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boost",
			Name:      "counter_store_available",
			Help:      "1 if the counter store connected at startup, 0 otherwise",
		},
	)

	TokensRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boost",
			Name:      "tokens_recorded_total",
			Help:      "Tokens added to the monthly counter",
		},
	)

	TokenAccountingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boost",
			Name:      "token_accounting_failures_total",
			Help:      "Token usage records that could not be persisted",
		},
	)

	MonthlyTokensUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boost",
			Name:      "monthly_tokens_used",
			Help:      "Monthly token counter after the last successful record",
		},
	)
)

var quotaMetricsRegistered bool

// RegisterQuotaMetrics registers Prometheus quota metrics. Must be called once from main.
func RegisterQuotaMetrics() {
	if quotaMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaDecisionsTotal)
	prometheus.MustRegister(CounterStoreErrorsTotal)
	prometheus.MustRegister(CounterStoreAvailable)
	prometheus.MustRegister(TokensRecordedTotal)
	prometheus.MustRegister(TokenAccountingFailuresTotal)
	prometheus.MustRegister(MonthlyTokensUsed)
	quotaMetricsRegistered = true
}
