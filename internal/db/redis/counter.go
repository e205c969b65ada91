package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/boost/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// IncrByExpire runs INCRBY and EXPIRE inside MULTI/EXEC so concurrent callers
// never observe the increment without its TTL.
func (s *Store) IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error) {
	cmds := rueidis.Commands{
		s.b().Multi().Build(),
		s.b().Incrby().Key(key).Increment(val).Build(),
		s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build(),
		s.b().Exec().Build(),
	}
	resps := s.client.DoMulti(ctx, cmds...)

	ops := []string{db.OpExec, db.OpIncrBy, db.OpExpire, db.OpExec}
	for i, r := range resps {
		if err := r.Error(); err != nil {
			return 0, &db.Error{Op: ops[i], Err: err}
		}
	}

	results, err := resps[len(resps)-1].ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpExec, Err: err}
	}
	if len(results) != 2 {
		return 0, &db.Error{Op: db.OpExec, Err: fmt.Errorf("unexpected reply length %d", len(results))}
	}
	if err := results[1].Error(); err != nil {
		return 0, &db.Error{Op: db.OpExpire, Err: err}
	}
	n, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return n, nil
}

// TTL returns the remaining time-to-live of key.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	cmd := s.b().Ttl().Key(key).Build()
	secs, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpTTL, Err: err}
	}
	switch {
	case secs == -2:
		return 0, db.ErrKeyNotFound
	case secs == -1:
		return 0, db.ErrNoExpiry
	case secs < 0:
		return 0, &db.Error{Op: db.OpTTL, Err: errors.New("unexpected negative ttl")}
	}
	return time.Duration(secs) * time.Second, nil
}
