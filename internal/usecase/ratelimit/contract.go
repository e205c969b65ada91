package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the consumer interface the gate needs from the counter repository.
type CounterStore interface {
	Available() bool
	Get(ctx context.Context, key string) (val int64, found bool, err error)
	IncrementAndExpire(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error)
	TimeToLive(ctx context.Context, key string) (ttl time.Duration, found bool, err error)
}
