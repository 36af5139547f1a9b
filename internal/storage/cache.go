package storage

import (
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

// GetCacheEntry returns the cached report for key, or nil when absent or disabled.
func (s *SQLiteStorage) GetCacheEntry(key string) (*CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil, nil
	}

	row := s.db.QueryRow(`
		SELECT cache_key, kind, quest, generated_at, ttl_seconds, payload
		FROM report_cache
		WHERE cache_key = ?
	`, key)

	var entry CacheEntry
	var generatedAt string
	var ttlSeconds int64
	if err := row.Scan(&entry.Key, &entry.Kind, &entry.Quest, &generatedAt, &ttlSeconds, &entry.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Warn("failed to read cache entry", zap.String("key", key), zap.Error(err))
		return nil, nil
	}

	ts, err := time.Parse(timeLayout, generatedAt)
	if err != nil {
		s.logger.Warn("failed to parse cache timestamp", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	entry.GeneratedAt = ts
	entry.TTL = time.Duration(ttlSeconds) * time.Second

	return &entry, nil
}

// PutCacheEntry inserts or replaces the entry at entry.Key.
func (s *SQLiteStorage) PutCacheEntry(entry CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO report_cache (cache_key, kind, quest, generated_at, ttl_seconds, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			kind = excluded.kind,
			quest = excluded.quest,
			generated_at = excluded.generated_at,
			ttl_seconds = excluded.ttl_seconds,
			payload = excluded.payload
	`,
		entry.Key,
		entry.Kind,
		entry.Quest,
		entry.GeneratedAt.UTC().Format(timeLayout),
		int64(entry.TTL/time.Second),
		entry.Payload,
	)
	if err != nil {
		s.logger.Warn("failed to write cache entry", zap.String("key", entry.Key), zap.Error(err))
	}
	return nil
}

// DeleteCacheEntry removes a cached report.
func (s *SQLiteStorage) DeleteCacheEntry(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	if _, err := s.db.Exec("DELETE FROM report_cache WHERE cache_key = ?", key); err != nil {
		s.logger.Warn("failed to delete cache entry", zap.String("key", key), zap.Error(err))
	}
	return nil
}
