package usage

import (
	"context"
	"time"
)

// CounterStore provides access to the quota counters.
type CounterStore interface {
	Available() bool
	Get(ctx context.Context, key string) (val int64, found bool, err error)
	IncrementAndExpire(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error)
}
