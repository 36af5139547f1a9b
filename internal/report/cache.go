package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/metrics"
	"github.com/khanglvm/quest-eval/internal/storage"
)

// DefaultTTL is how long a cached report stays fresh.
const DefaultTTL = 5 * time.Minute

// Store persists reports by cache key.
type Store interface {
	Get(key string) (*Report, error)
	Put(key string, rep *Report) error
	Delete(key string) error
}

// MemoryStore keeps reports in a bounded LRU.
type MemoryStore struct {
	cache *lru.Cache[string, *Report]
}

// NewMemoryStore creates an in-memory store holding at most size reports.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, *Report](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Get(key string) (*Report, error) {
	rep, ok := m.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return rep, nil
}

func (m *MemoryStore) Put(key string, rep *Report) error {
	m.cache.Add(key, rep)
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.cache.Remove(key)
	return nil
}

// SQLiteStore keeps reports in the report_cache table so they survive across invocations.
type SQLiteStore struct {
	db storage.Storage
}

// NewSQLiteStore adapts a storage backend.
func NewSQLiteStore(db storage.Storage) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(key string) (*Report, error) {
	entry, err := s.db.GetCacheEntry(key)
	if err != nil || entry == nil {
		return nil, err
	}

	var rep Report
	if err := json.Unmarshal(entry.Payload, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode cached report %s: %w", key, err)
	}
	rep.GeneratedAt = entry.GeneratedAt
	rep.TTL = entry.TTL
	return &rep, nil
}

func (s *SQLiteStore) Put(key string, rep *Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", key, err)
	}
	return s.db.PutCacheEntry(storage.CacheEntry{
		Key:         key,
		Kind:        string(rep.Kind),
		Quest:       rep.Quest,
		GeneratedAt: rep.GeneratedAt,
		TTL:         rep.TTL,
		Payload:     payload,
	})
}

func (s *SQLiteStore) Delete(key string) error {
	return s.db.DeleteCacheEntry(key)
}

// ComputeFunc builds a fresh report.
type ComputeFunc func(kind Kind, quest string) (*Report, error)

// Service returns cached reports, recomputing stale ones.
//
// Requests for the same key are serialized so concurrent callers that find a
// stale entry recompute it once; different keys do not block each other.
type Service struct {
	compute ComputeFunc
	store   Store
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*keyLock

	recomputations atomic.Int64
}

// NewService creates a cached report service. m may be nil.
func NewService(compute ComputeFunc, store Store, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		compute: compute,
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		logger:  logger,
		locks:   make(map[string]*keyLock),
	}
}

// Recomputations returns how many times a report was computed.
func (s *Service) Recomputations() int64 {
	return s.recomputations.Load()
}

// keyLock is a per-key mutex shared by its current holders and waiters.
type keyLock struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex for key. The returned func releases it and drops
// the entry once no caller holds or waits on it.
func (s *Service) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// lockedKeys returns how many keys currently have a lock entry.
func (s *Service) lockedKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// Get returns the report for (kind, quest). A cached report younger than the
// TTL is returned unchanged unless refresh is set.
func (s *Service) Get(ctx context.Context, kind Kind, quest string, refresh bool) (*Report, error) {
	key := CacheKey(kind, quest)

	unlock := s.lock(key)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !refresh {
		cached, err := s.store.Get(key)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		if cached != nil && cached.FreshAt(s.now()) {
			s.metrics.ObserveCache("hit")
			return cached, nil
		}
		if cached != nil {
			s.metrics.ObserveCache("stale")
		} else {
			s.metrics.ObserveCache("miss")
		}
	} else {
		s.metrics.ObserveCache("refresh")
	}

	rep, err := s.compute(kind, quest)
	if err != nil {
		return nil, err
	}
	s.recomputations.Add(1)
	s.metrics.ObserveRecompute()

	rep.GeneratedAt = s.now().UTC()
	rep.TTL = s.ttl

	if err := s.store.Put(key, rep); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}

	s.logger.Debug("report recomputed", zap.String("key", key), zap.Int("examples", rep.Global.Total))
	return rep, nil
}

// Invalidate drops every cached kind for quest and for the unfiltered view.
func (s *Service) Invalidate(quest string) {
	for _, kind := range []Kind{KindSummary, KindDetailed, KindFailures} {
		for _, q := range []string{"", quest} {
			key := CacheKey(kind, q)
			unlock := s.lock(key)
			if err := s.store.Delete(key); err != nil {
				s.logger.Warn("report cache delete failed", zap.String("key", key), zap.Error(err))
			}
			unlock()
		}
	}
}
