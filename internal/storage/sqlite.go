package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "report_cache", up: s.migration001ReportCache},
		{version: 2, name: "evaluation_runs", up: s.migration002EvaluationRuns},
	}

	for _, m := range migrations {
		if version < m.version {
			s.logger.Debug("running migration", zap.Int("version", m.version), zap.String("name", m.name))
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(m migration) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name)
	return err
}

func (s *SQLiteStorage) migration001ReportCache() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS report_cache (
			cache_key TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			quest TEXT NOT NULL DEFAULT '',
			generated_at TEXT NOT NULL,
			ttl_seconds INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create report_cache table: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) migration002EvaluationRuns() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS evaluation_runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			filter TEXT NOT NULL DEFAULT '',
			concurrency INTEGER NOT NULL,
			llm_enabled INTEGER NOT NULL,
			total INTEGER NOT NULL,
			pass INTEGER NOT NULL,
			fail INTEGER NOT NULL,
			needs_review INTEGER NOT NULL,
			errored INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create evaluation_runs table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_evaluation_runs_started
		ON evaluation_runs(started_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create evaluation_runs index: %w", err)
	}
	return nil
}
