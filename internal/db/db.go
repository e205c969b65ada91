package db

import (
	"context"
	"time"
)

// Store is the counter store facade the service talks to.
type Store interface {
	Pinger
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CounterStore provides integer counters with server-side expiry.
// Missing keys are reported as ErrKeyNotFound.
type CounterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// IncrByExpire atomically adds val to key and (re)sets its TTL, returning the new value.
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key. ErrNoExpiry if the key never expires.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
