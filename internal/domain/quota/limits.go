// Package quota holds the request and token quota policy. It performs no I/O.
package quota

import "time"

// Compiled-in limits. They are not configurable at runtime.
const (
	// DailyRequestLimit is the number of requests one client may make per calendar day.
	DailyRequestLimit int64 = 5
	// MonthlyTokenLimit is the number of tokens all clients together may consume per month.
	MonthlyTokenLimit int64 = 100000
	// DailyWindow is the TTL applied to a daily counter on every increment.
	DailyWindow = 24 * time.Hour
	// MonthlyKeyTTL is a cleanup margin for monthly counters, not the quota period.
	MonthlyKeyTTL = 60 * 24 * time.Hour
)

// Limits bundles the values the policy is evaluated against.
type Limits struct {
	DailyRequests int64
	MonthlyTokens int64
	DailyWindow   time.Duration
	MonthlyKeyTTL time.Duration
}

// DefaultLimits returns the compiled-in limits.
func DefaultLimits() Limits {
	return Limits{
		DailyRequests: DailyRequestLimit,
		MonthlyTokens: MonthlyTokenLimit,
		DailyWindow:   DailyWindow,
		MonthlyKeyTTL: MonthlyKeyTTL,
	}
}
