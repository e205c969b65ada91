package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boost/internal/domain"
	"github.com/kailas-cloud/boost/internal/domain/quota"
)

// --- Mock ---

type mockCounterStore struct {
	unavailable bool
	values      map[string]int64
	ttls        map[string]time.Duration
	getErr      error
	incrErr     error
	mutations   int
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *mockCounterStore) Available() bool { return !m.unavailable }

func (m *mockCounterStore) Get(_ context.Context, key string) (int64, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockCounterStore) IncrementAndExpire(_ context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	m.mutations++
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.values[key] += amount
	m.ttls[key] = ttl
	return m.values[key], nil
}

var fixedNow = time.Date(2024, time.March, 7, 8, 0, 0, 0, time.Local)

func newTestService(store *mockCounterStore) *Service {
	return New(store, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

// --- Tests ---

func TestStats(t *testing.T) {
	store := newMockCounterStore()
	store.values["daily:10.0.0.5:2024-03-07"] = 2
	store.values["monthly_tokens:2024:3"] = 42000
	svc := newTestService(store)

	r, err := svc.Stats(context.Background(), "10.0.0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := r.DailyRequests()
	if d.Current() != 2 || d.Limit() != 5 || d.Remaining() != 3 {
		t.Errorf("daily = %d/%d remaining %d", d.Current(), d.Limit(), d.Remaining())
	}
	m := r.MonthlyTokens()
	if m.Current() != 42000 || m.Limit() != 100000 || m.Remaining() != 58000 {
		t.Errorf("monthly = %d/%d remaining %d", m.Current(), m.Limit(), m.Remaining())
	}
	if store.mutations != 0 {
		t.Errorf("Stats must not mutate counters, got %d mutations", store.mutations)
	}
}

func TestStats_EmptyCounters(t *testing.T) {
	svc := newTestService(newMockCounterStore())

	r, err := svc.Stats(context.Background(), "10.0.0.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DailyRequests().Current() != 0 || r.DailyRequests().Remaining() != 5 {
		t.Errorf("daily = %+v", r.DailyRequests())
	}
	if r.MonthlyTokens().Remaining() != 100000 {
		t.Errorf("monthly remaining = %d", r.MonthlyTokens().Remaining())
	}
}

func TestStats_OverLimitRemainingIsZero(t *testing.T) {
	store := newMockCounterStore()
	store.values["daily:10.0.0.5:2024-03-07"] = 7
	store.values["monthly_tokens:2024:3"] = 100420
	svc := newTestService(store)

	r, err := svc.Stats(context.Background(), "10.0.0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DailyRequests().Remaining() != 0 {
		t.Errorf("daily remaining = %d, want 0", r.DailyRequests().Remaining())
	}
	if r.MonthlyTokens().Remaining() != 0 {
		t.Errorf("monthly remaining = %d, want 0", r.MonthlyTokens().Remaining())
	}
}

func TestStats_UnavailableFailsLoudly(t *testing.T) {
	store := newMockCounterStore()
	store.unavailable = true
	svc := newTestService(store)

	if _, err := svc.Stats(context.Background(), "10.0.0.5"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStats_ReadError(t *testing.T) {
	store := newMockCounterStore()
	store.getErr = errors.Join(domain.ErrStoreUnavailable, errors.New("i/o timeout"))
	svc := newTestService(store)

	if _, err := svc.Stats(context.Background(), "10.0.0.5"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRecordTokens(t *testing.T) {
	store := newMockCounterStore()
	store.values["monthly_tokens:2024:3"] = 99900
	svc := newTestService(store)

	total, err := svc.RecordTokens(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 99950 {
		t.Errorf("total = %d, want 99950", total)
	}
	if store.ttls["monthly_tokens:2024:3"] != quota.MonthlyKeyTTL {
		t.Errorf("ttl = %v, want 60 days", store.ttls["monthly_tokens:2024:3"])
	}
}

func TestRecordTokens_ZeroIsNoop(t *testing.T) {
	store := newMockCounterStore()
	svc := newTestService(store)

	if _, err := svc.RecordTokens(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.mutations != 0 {
		t.Error("zero tokens must not touch the store")
	}
}

func TestRecordTokens_NegativeRejected(t *testing.T) {
	store := newMockCounterStore()
	svc := newTestService(store)

	_, err := svc.RecordTokens(context.Background(), -10)
	if !errors.Is(err, domain.ErrTokenAccounting) || !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected accounting + invalid input, got %v", err)
	}
	if store.mutations != 0 {
		t.Error("monthly counter must never decrease")
	}
}

func TestRecordTokens_Failures(t *testing.T) {
	unavailable := newMockCounterStore()
	unavailable.unavailable = true
	if _, err := newTestService(unavailable).RecordTokens(context.Background(), 5); !errors.Is(err, domain.ErrTokenAccounting) {
		t.Errorf("unavailable: expected ErrTokenAccounting, got %v", err)
	}

	broken := newMockCounterStore()
	broken.incrErr = errors.Join(domain.ErrStoreUnavailable, errors.New("EOF"))
	_, err := newTestService(broken).RecordTokens(context.Background(), 5)
	if !errors.Is(err, domain.ErrTokenAccounting) || !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("broken: expected accounting + unavailable, got %v", err)
	}
}
