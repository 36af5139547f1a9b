package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/quest-eval/internal/metrics"
	"github.com/khanglvm/quest-eval/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingCompute(calls *atomic.Int64) ComputeFunc {
	return func(kind Kind, quest string) (*Report, error) {
		calls.Add(1)
		return Build(kind, quest, []ExampleSummary{summary("q", "c", "a.sql", "PASS")}), nil
	}
}

func newTestService(t *testing.T, compute ComputeFunc, ttl time.Duration) (*Service, *fakeClock) {
	t.Helper()
	store, err := NewMemoryStore(16)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(compute, store, ttl, nil, nil)
	svc.now = clock.Now
	return svc, clock
}

func TestServiceGet_FreshWithinTTL(t *testing.T) {
	var calls atomic.Int64
	svc, clock := newTestService(t, countingCompute(&calls), time.Minute)
	ctx := context.Background()

	first, err := svc.Get(ctx, KindSummary, "", false)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), first.GeneratedAt)
	assert.Equal(t, time.Minute, first.TTL)

	clock.Advance(30 * time.Second)
	second, err := svc.Get(ctx, KindSummary, "", false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), svc.Recomputations())

	clock.Advance(30 * time.Second)
	third, err := svc.Get(ctx, KindSummary, "", false)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int64(2), svc.Recomputations())
	assert.Equal(t, int64(2), calls.Load())
}

func TestServiceGet_Refresh(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, countingCompute(&calls), time.Hour)
	ctx := context.Background()

	_, err := svc.Get(ctx, KindSummary, "q", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, KindSummary, "q", true)
	require.NoError(t, err)

	assert.Equal(t, int64(2), svc.Recomputations())
}

func TestServiceGet_KeysAreIndependent(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, countingCompute(&calls), time.Hour)
	ctx := context.Background()

	for _, kind := range []Kind{KindSummary, KindDetailed, KindFailures} {
		_, err := svc.Get(ctx, kind, "", false)
		require.NoError(t, err)
		_, err = svc.Get(ctx, kind, "q", false)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(6), svc.Recomputations())
}

func TestServiceGet_ComputeError(t *testing.T) {
	boom := errors.New("boom")
	svc, _ := newTestService(t, func(Kind, string) (*Report, error) { return nil, boom }, time.Hour)

	_, err := svc.Get(context.Background(), KindSummary, "", false)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, svc.Recomputations())
}

func TestServiceGet_CancelledContext(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, countingCompute(&calls), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Get(ctx, KindSummary, "", false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestServiceGet_ConcurrentSameKeyRecomputesOnce(t *testing.T) {
	var calls atomic.Int64
	slow := func(kind Kind, quest string) (*Report, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return Build(kind, quest, nil), nil
	}
	svc, _ := newTestService(t, slow, time.Hour)

	const callers = 16
	var wg sync.WaitGroup
	reports := make([]*Report, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rep, err := svc.Get(context.Background(), KindSummary, "q", false)
			assert.NoError(t, err)
			reports[i] = rep
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), svc.Recomputations())
	assert.Equal(t, int64(1), calls.Load())
	for _, rep := range reports {
		assert.Same(t, reports[0], rep)
	}
	assert.Zero(t, svc.lockedKeys(), "lock entries must be dropped once settled")
}

func TestServiceLocksDoNotAccumulate(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, countingCompute(&calls), time.Hour)

	for i := 0; i < 100; i++ {
		_, err := svc.Get(context.Background(), KindSummary, fmt.Sprintf("quest-%d", i), false)
		require.NoError(t, err)
	}
	svc.Invalidate("quest-1")

	assert.Equal(t, int64(100), calls.Load())
	assert.Zero(t, svc.lockedKeys())
}

func TestServiceGet_DifferentKeysDoNotBlock(t *testing.T) {
	release := make(chan struct{})
	compute := func(kind Kind, quest string) (*Report, error) {
		switch quest {
		case "a":
			select {
			case <-release:
			case <-time.After(5 * time.Second):
				return nil, errors.New("key a was never released")
			}
		case "b":
			close(release)
		}
		return Build(kind, quest, nil), nil
	}
	svc, _ := newTestService(t, compute, time.Hour)

	errA := make(chan error, 1)
	go func() {
		_, err := svc.Get(context.Background(), KindSummary, "a", false)
		errA <- err
	}()

	// give a head start so it holds its key lock while b computes
	time.Sleep(10 * time.Millisecond)
	_, err := svc.Get(context.Background(), KindSummary, "b", false)
	require.NoError(t, err)
	require.NoError(t, <-errA)
	assert.Equal(t, int64(2), svc.Recomputations())
}

func TestServiceInvalidate(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, countingCompute(&calls), time.Hour)
	ctx := context.Background()

	_, err := svc.Get(ctx, KindDetailed, "q", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, KindSummary, "", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, KindSummary, "other", false)
	require.NoError(t, err)

	svc.Invalidate("q")

	_, err = svc.Get(ctx, KindDetailed, "q", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, KindSummary, "", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, KindSummary, "other", false)
	require.NoError(t, err)

	assert.Equal(t, int64(5), svc.Recomputations())
}

func TestServiceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)

	var calls atomic.Int64
	store, err := NewMemoryStore(4)
	require.NoError(t, err)
	svc := NewService(countingCompute(&calls), store, time.Hour, m, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Get(ctx, KindSummary, "", false)
		require.NoError(t, err)
	}

	expected := `
# HELP quest_eval_report_recomputations_total Aggregate reports recomputed from evaluation records.
# TYPE quest_eval_report_recomputations_total counter
quest_eval_report_recomputations_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quest_eval_report_recomputations_total"))
}

func TestMemoryStoreEviction(t *testing.T) {
	store, err := NewMemoryStore(2)
	require.NoError(t, err)

	require.NoError(t, store.Put("a", &Report{Quest: "a"}))
	require.NoError(t, store.Put("b", &Report{Quest: "b"}))
	require.NoError(t, store.Put("c", &Report{Quest: "c"}))

	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Get("c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c", got.Quest)

	require.NoError(t, store.Delete("c"))
	got, _ = store.Get("c")
	assert.Nil(t, got)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	db := storage.NewStorage(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.Close() })

	store := NewSQLiteStore(db)

	missing, err := store.Get(CacheKey(KindSummary, ""))
	require.NoError(t, err)
	assert.Nil(t, missing)

	rep := Build(KindFailures, "q", []ExampleSummary{
		summary("q", "c", "a.sql", "PASS"),
		summary("q", "c", "b.sql", "FAIL"),
	})
	rep.GeneratedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rep.TTL = 5 * time.Minute

	key := CacheKey(rep.Kind, rep.Quest)
	require.NoError(t, store.Put(key, rep))

	got, err := store.Get(key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rep.Global, got.Global)
	assert.Equal(t, rep.Examples, got.Examples)
	assert.True(t, rep.GeneratedAt.Equal(got.GeneratedAt))
	assert.Equal(t, 5*time.Minute, got.TTL)

	require.NoError(t, store.Delete(key))
	got, err = store.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestServiceWithSQLiteStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	var calls atomic.Int64

	open := func() (*Service, func()) {
		db := storage.NewStorage(path, nil)
		require.NoError(t, db.Init())
		return NewService(countingCompute(&calls), NewSQLiteStore(db), time.Hour, nil, nil), func() { db.Close() }
	}

	first, closeFirst := open()
	_, err := first.Get(context.Background(), KindSummary, "", false)
	require.NoError(t, err)
	closeFirst()

	second, closeSecond := open()
	defer closeSecond()
	rep, err := second.Get(context.Background(), KindSummary, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Global.Total)
	assert.Zero(t, second.Recomputations())
	assert.Equal(t, int64(1), calls.Load())
}
