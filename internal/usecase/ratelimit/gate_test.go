package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boost/internal/domain"
	"github.com/kailas-cloud/boost/internal/domain/quota"
)

// --- Mock ---

type mockCounterStore struct {
	mu          sync.Mutex
	unavailable bool
	values      map[string]int64
	ttls        map[string]time.Duration
	errOnGet    map[string]error
	incrErr     error
	ttlErr      error

	gets  []string
	incrs []string
	calls int
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{
		values:   map[string]int64{},
		ttls:     map[string]time.Duration{},
		errOnGet: map[string]error{},
	}
}

func (m *mockCounterStore) Available() bool { return !m.unavailable }

func (m *mockCounterStore) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.gets = append(m.gets, key)
	if err := m.errOnGet[key]; err != nil {
		return 0, false, err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockCounterStore) IncrementAndExpire(_ context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.incrs = append(m.incrs, key)
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.values[key] += amount
	m.ttls[key] = ttl
	return m.values[key], nil
}

func (m *mockCounterStore) TimeToLive(_ context.Context, key string) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.ttlErr != nil {
		return 0, false, m.ttlErr
	}
	ttl, ok := m.ttls[key]
	return ttl, ok, nil
}

// --- Helpers ---

const client = "10.0.0.5"

var fixedNow = time.Date(2024, time.March, 7, 10, 30, 0, 0, time.Local)

const (
	dailyKey   = "daily:10.0.0.5:2024-03-07"
	monthlyKey = "monthly_tokens:2024:3"
)

func newTestGate(store *mockCounterStore) *Gate {
	return New(store, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

func storeDown() error {
	return errors.Join(domain.ErrStoreUnavailable, errors.New("connection reset by peer"))
}

// --- Tests ---

func TestAdmit_BelowDailyLimitIncrements(t *testing.T) {
	for c := int64(0); c < quota.DailyRequestLimit; c++ {
		store := newMockCounterStore()
		if c > 0 {
			store.values[dailyKey] = c
		}
		g := newTestGate(store)

		if err := g.Admit(context.Background(), client); err != nil {
			t.Fatalf("count %d: unexpected error: %v", c, err)
		}
		if store.values[dailyKey] != c+1 {
			t.Errorf("count %d: post-call count = %d, want %d", c, store.values[dailyKey], c+1)
		}
		if store.ttls[dailyKey] != 86400*time.Second {
			t.Errorf("count %d: ttl = %v, want 24h", c, store.ttls[dailyKey])
		}
	}
}

func TestAdmit_DailyExceeded(t *testing.T) {
	for _, c := range []int64{5, 6, 50} {
		store := newMockCounterStore()
		store.values[dailyKey] = c
		store.ttls[dailyKey] = 3*time.Hour + 12*time.Second
		g := newTestGate(store)

		err := g.Admit(context.Background(), client)
		var dle *domain.DailyLimitError
		if !errors.As(err, &dle) {
			t.Fatalf("count %d: expected DailyLimitError, got %v", c, err)
		}
		if !errors.Is(err, domain.ErrDailyLimitExceeded) {
			t.Errorf("count %d: expected ErrDailyLimitExceeded in chain", c)
		}
		if dle.ResetAfter != 3*time.Hour+12*time.Second {
			t.Errorf("count %d: ResetAfter = %v", c, dle.ResetAfter)
		}
		if len(store.incrs) != 0 {
			t.Errorf("count %d: denied request must not increment, got %v", c, store.incrs)
		}
	}
}

func TestAdmit_DailyExceeded_RegardlessOfMonthly(t *testing.T) {
	for _, monthly := range []int64{0, 99999, 100000, 500000} {
		store := newMockCounterStore()
		store.values[dailyKey] = 5
		store.values[monthlyKey] = monthly
		g := newTestGate(store)

		if err := g.Admit(context.Background(), client); !errors.Is(err, domain.ErrDailyLimitExceeded) {
			t.Errorf("monthly %d: expected daily denial, got %v", monthly, err)
		}
	}
}

func TestAdmit_BothExceeded_DailyWinsAndMonthlyNotRead(t *testing.T) {
	store := newMockCounterStore()
	store.values[dailyKey] = 5
	store.values[monthlyKey] = 250000
	g := newTestGate(store)

	err := g.Admit(context.Background(), client)
	if !errors.Is(err, domain.ErrDailyLimitExceeded) {
		t.Fatalf("expected daily denial, got %v", err)
	}
	if errors.Is(err, domain.ErrMonthlyLimitExceeded) {
		t.Error("monthly denial must not be reported when daily denies")
	}
	for _, k := range store.gets {
		if k == monthlyKey {
			t.Error("monthly counter must not be read when daily denies")
		}
	}
}

func TestAdmit_MonthlyExceeded(t *testing.T) {
	for _, total := range []int64{100000, 100001, 180000} {
		store := newMockCounterStore()
		store.values[dailyKey] = 2
		store.values[monthlyKey] = total
		g := newTestGate(store)

		err := g.Admit(context.Background(), client)
		var mle *domain.MonthlyLimitError
		if !errors.As(err, &mle) {
			t.Fatalf("total %d: expected MonthlyLimitError, got %v", total, err)
		}
		if mle.Current != total || mle.Limit != quota.MonthlyTokenLimit {
			t.Errorf("total %d: current=%d limit=%d", total, mle.Current, mle.Limit)
		}
		if len(store.incrs) != 0 {
			t.Errorf("total %d: denied request must not increment", total)
		}
	}
}

func TestAdmit_DailyReset_FallsBackToWindow(t *testing.T) {
	store := newMockCounterStore()
	store.values[dailyKey] = 5 // no TTL recorded
	g := newTestGate(store)

	var dle *domain.DailyLimitError
	if err := g.Admit(context.Background(), client); !errors.As(err, &dle) {
		t.Fatalf("expected DailyLimitError, got %v", err)
	}
	if dle.ResetAfter != quota.DailyWindow {
		t.Errorf("ResetAfter = %v, want %v", dle.ResetAfter, quota.DailyWindow)
	}

	store.ttlErr = storeDown()
	if err := g.Admit(context.Background(), client); !errors.As(err, &dle) {
		t.Fatalf("TTL failure must still deny, got %v", err)
	}
	if dle.ResetAfter != quota.DailyWindow {
		t.Errorf("ResetAfter = %v, want %v", dle.ResetAfter, quota.DailyWindow)
	}
}

func TestAdmit_Unavailable_FailOpenWithoutMutation(t *testing.T) {
	store := newMockCounterStore()
	store.unavailable = true
	g := newTestGate(store)

	for i := 0; i < 10; i++ {
		if err := g.Admit(context.Background(), client); err != nil {
			t.Fatalf("attempt %d: expected fail-open, got %v", i, err)
		}
	}
	if store.calls != 0 {
		t.Errorf("expected no store calls, got %d", store.calls)
	}
}

func TestAdmit_Unavailable_FailClosed(t *testing.T) {
	store := newMockCounterStore()
	store.unavailable = true
	g := newTestGate(store).WithPolicy(FailClosed)

	if err := g.Admit(context.Background(), client); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAdmit_MidCheckFailures_FailOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockCounterStore)
	}{
		{"read daily", func(m *mockCounterStore) { m.errOnGet[dailyKey] = storeDown() }},
		{"read monthly", func(m *mockCounterStore) { m.errOnGet[monthlyKey] = storeDown() }},
		{"increment", func(m *mockCounterStore) { m.incrErr = storeDown() }},
		{"corrupt value", func(m *mockCounterStore) { m.errOnGet[dailyKey] = errors.New("parse: invalid syntax") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockCounterStore()
			tc.setup(store)
			g := newTestGate(store)

			if err := g.Admit(context.Background(), client); err != nil {
				t.Fatalf("expected fail-open, got %v", err)
			}
		})
	}
}

func TestAdmit_MidCheckFailures_FailClosed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockCounterStore)
	}{
		{"read daily", func(m *mockCounterStore) { m.errOnGet[dailyKey] = storeDown() }},
		{"increment", func(m *mockCounterStore) { m.incrErr = storeDown() }},
		{"corrupt value", func(m *mockCounterStore) { m.errOnGet[dailyKey] = errors.New("parse: invalid syntax") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockCounterStore()
			tc.setup(store)
			g := newTestGate(store).WithPolicy(FailClosed)

			if err := g.Admit(context.Background(), client); !errors.Is(err, domain.ErrStoreUnavailable) {
				t.Fatalf("expected ErrStoreUnavailable, got %v", err)
			}
		})
	}
}

func TestGuard_ReturnsResultUnchanged(t *testing.T) {
	store := newMockCounterStore()
	g := newTestGate(store)

	calls := 0
	got, err := Guard(context.Background(), g, client, func(context.Context) (string, error) {
		calls++
		return "essay", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "essay" || calls != 1 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestGuard_OperationErrorPassesThrough(t *testing.T) {
	g := newTestGate(newMockCounterStore())
	opErr := errors.New("provider timeout")

	_, err := Guard(context.Background(), g, client, func(context.Context) (int, error) {
		return 0, opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("expected operation error, got %v", err)
	}
}

func TestGuard_DeniedSkipsOperation(t *testing.T) {
	store := newMockCounterStore()
	store.values[dailyKey] = 5
	g := newTestGate(store)

	called := false
	_, err := Guard(context.Background(), g, client, func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, domain.ErrDailyLimitExceeded) {
		t.Fatalf("expected daily denial, got %v", err)
	}
	if called {
		t.Error("operation must not run when denied")
	}
}

func TestGuard_UnavailableStillRunsOperation(t *testing.T) {
	store := newMockCounterStore()
	store.unavailable = true
	g := newTestGate(store)

	got, err := Guard(context.Background(), g, client, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("got %d, %v", got, err)
	}
}

func TestScenario_FiveRequestsThenDenied(t *testing.T) {
	store := newMockCounterStore()
	g := newTestGate(store)

	for i := 1; i <= 5; i++ {
		if err := g.Admit(context.Background(), client); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	err := g.Admit(context.Background(), client)
	var dle *domain.DailyLimitError
	if !errors.As(err, &dle) {
		t.Fatalf("request 6: expected DailyLimitError, got %v", err)
	}
	if dle.ResetAfter <= 0 {
		t.Errorf("request 6: ResetAfter = %v, want positive", dle.ResetAfter)
	}
	if store.values[dailyKey] != 5 {
		t.Errorf("daily count = %d, want 5", store.values[dailyKey])
	}
}

func TestScenario_MonthlyTokens(t *testing.T) {
	store := newMockCounterStore()
	store.values[monthlyKey] = 99900
	g := newTestGate(store)

	if err := g.Admit(context.Background(), client); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	// the caller records the tokens of the completed operation
	if _, err := store.IncrementAndExpire(context.Background(), monthlyKey, 50, quota.MonthlyKeyTTL); err != nil {
		t.Fatal(err)
	}
	if store.values[monthlyKey] != 99950 {
		t.Fatalf("monthly total = %d, want 99950", store.values[monthlyKey])
	}

	store.values[monthlyKey] = 100000
	err := g.Admit(context.Background(), "10.0.0.6")
	var mle *domain.MonthlyLimitError
	if !errors.As(err, &mle) {
		t.Fatalf("expected MonthlyLimitError, got %v", err)
	}
	if mle.Current < 100000 {
		t.Errorf("Current = %d, want >= 100000", mle.Current)
	}
}

func TestAdmit_ConcurrentClientsAreIndependent(t *testing.T) {
	store := newMockCounterStore()
	g := newTestGate(store)

	var wg sync.WaitGroup
	clients := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for _, c := range clients {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(c string) {
				defer wg.Done()
				_ = g.Admit(context.Background(), c)
			}(c)
		}
	}
	wg.Wait()

	for _, c := range clients {
		if got := store.values[quota.DailyKey(c, fixedNow)]; got != 3 {
			t.Errorf("client %s: count = %d, want 3", c, got)
		}
	}
}
