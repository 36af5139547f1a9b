/*
Package storage implements the persistent layer for report caching and run history.

This package provides SQLite-based storage for cached aggregate reports and
evaluation run summaries, with graceful degradation if the database is
unavailable: reads miss and writes become no-ops.

The database defaults to ~/.quest-eval/cache.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation).
*/
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage defines the interface for persistent storage operations.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// GetCacheEntry returns the cached report for key, or nil when absent.
	GetCacheEntry(key string) (*CacheEntry, error)

	// PutCacheEntry replaces the cached report at entry.Key.
	PutCacheEntry(entry CacheEntry) error

	// DeleteCacheEntry removes a cached report.
	DeleteCacheEntry(key string) error

	// RecordRun stores the summary of an evaluation run.
	RecordRun(run RunRecord) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]RunRecord, error)

	// Cleanup removes runs and cache entries older than retention.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
	logger   *zap.Logger
}

// DefaultPath returns ~/.quest-eval/cache.db, or "" when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".quest-eval", "cache.db")
}

// NewStorage creates a new SQLite storage instance at dbPath.
//
// An empty dbPath uses DefaultPath. If the directory doesn't exist, it will
// be created by Init. If the database cannot be opened, the storage will be
// disabled but operations will not fail.
func NewStorage(dbPath string, logger *zap.Logger) *SQLiteStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbPath == "" {
		dbPath = DefaultPath()
	}
	if dbPath == "" {
		logger.Warn("storage disabled: cannot resolve home directory")
		return &SQLiteStorage{enabled: false, logger: logger}
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.db != nil
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		disable := func(err error) {
			initErr = err
			s.enabled = false
			s.logger.Warn("storage disabled", zap.String("path", s.dbPath), zap.Error(err))
		}

		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			disable(fmt.Errorf("failed to create db directory: %w", err))
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			disable(fmt.Errorf("failed to open database: %w", err))
			return
		}
		s.db = db

		if err := db.Ping(); err != nil {
			disable(fmt.Errorf("failed to ping database: %w", err))
			return
		}

		// concurrent evaluation workers share this handle
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			s.logger.Debug("failed to set busy_timeout", zap.Error(err))
		}

		if err := s.runMigrations(); err != nil {
			disable(fmt.Errorf("failed to run migrations: %w", err))
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}
