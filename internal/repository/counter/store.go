package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/boost/internal/db"
	"github.com/kailas-cloud/boost/internal/domain"
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Repo adapts the counter store to integer counters.
// A Repo without a store is permanently unavailable; every call returns
// an error wrapping domain.ErrStoreUnavailable.
type Repo struct {
	store     store
	opTimeout time.Duration
}

// New creates a counter repository backed by s.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Unavailable returns a repository for a store that could not be connected.
func Unavailable() *Repo {
	return &Repo{}
}

// WithOpTimeout bounds every store round trip. Zero means the caller's context only.
func (r *Repo) WithOpTimeout(d time.Duration) *Repo {
	r.opTimeout = d
	return r
}

// Available reports whether a store connection was established.
func (r *Repo) Available() bool {
	return r.store != nil
}

// Ping probes the store.
func (r *Repo) Ping(ctx context.Context) error {
	if !r.Available() {
		return domain.ErrStoreUnavailable
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.store.Ping(ctx); err != nil {
		return unavailable(db.OpPing, "", err)
	}
	return nil
}

// Get returns the counter value. found is false if the key does not exist.
func (r *Repo) Get(ctx context.Context, key string) (val int64, found bool, err error) {
	if !r.Available() {
		return 0, false, domain.ErrStoreUnavailable
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, unavailable(db.OpGet, key, err)
	}

	val, err = strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("counter GET %s parse: %w", key, err)
	}
	return val, true, nil
}

// IncrementAndExpire atomically adds amount to key and (re)sets its TTL.
// The key is created on first increment.
func (r *Repo) IncrementAndExpire(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	if !r.Available() {
		return 0, domain.ErrStoreUnavailable
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.store.IncrByExpire(ctx, key, amount, ttl)
	if err != nil {
		return 0, unavailable(db.OpIncrBy, key, err)
	}
	return n, nil
}

// TimeToLive returns the remaining lifetime of key. found is false if the key
// does not exist or has no expiry.
func (r *Repo) TimeToLive(ctx context.Context, key string) (ttl time.Duration, found bool, err error) {
	if !r.Available() {
		return 0, false, domain.ErrStoreUnavailable
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ttl, err = r.store.TTL(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) || errors.Is(err, db.ErrNoExpiry) {
			return 0, false, nil
		}
		return 0, false, unavailable(db.OpTTL, key, err)
	}
	return ttl, true, nil
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

func unavailable(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("counter %s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("counter %s %s: %w: %w", op, key, domain.ErrStoreUnavailable, err)
}
