package quota

// Kind identifies why a request was denied.
type Kind string

// Decision kinds.
const (
	KindAllow           Kind = "allow"
	KindDailyExceeded   Kind = "daily_exceeded"
	KindMonthlyExceeded Kind = "monthly_exceeded"
)

// Decision is the outcome of evaluating one quota.
type Decision struct {
	Kind      Kind
	Current   int64
	Limit     int64
	Remaining int64
}

// Allowed reports whether the decision lets the request through.
func (d Decision) Allowed() bool { return d.Kind == KindAllow }

// EvaluateDaily denies once a client's request count reaches the limit.
func EvaluateDaily(current, limit int64) Decision {
	if current >= limit {
		return Decision{Kind: KindDailyExceeded, Current: current, Limit: limit, Remaining: 0}
	}
	return Decision{Kind: KindAllow, Current: current, Limit: limit, Remaining: Remaining(current, limit)}
}

// EvaluateMonthly denies once the global token total reaches the limit.
func EvaluateMonthly(current, limit int64) Decision {
	if current >= limit {
		return Decision{Kind: KindMonthlyExceeded, Current: current, Limit: limit, Remaining: 0}
	}
	return Decision{Kind: KindAllow, Current: current, Limit: limit, Remaining: Remaining(current, limit)}
}

// Combine returns the first denial in argument order, or an allow.
// Callers pass the daily decision first so it wins when both quotas are spent.
func Combine(decisions ...Decision) Decision {
	for _, d := range decisions {
		if !d.Allowed() {
			return d
		}
	}
	return Decision{Kind: KindAllow}
}

// Remaining returns limit-current, never below zero.
func Remaining(current, limit int64) int64 {
	if current >= limit {
		return 0
	}
	return limit - current
}
