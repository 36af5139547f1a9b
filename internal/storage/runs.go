package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecordRun stores the summary of an evaluation run.
func (s *SQLiteStorage) RecordRun(run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	llm := 0
	if run.LLMEnabled {
		llm = 1
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO evaluation_runs
			(run_id, started_at, finished_at, filter, concurrency, llm_enabled,
			 total, pass, fail, needs_review, errored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Filter,
		run.Concurrency,
		llm,
		run.Total,
		run.Pass,
		run.Fail,
		run.NeedsReview,
		run.Errored,
	)
	if err != nil {
		s.logger.Warn("failed to record run", zap.String("run_id", run.RunID), zap.Error(err))
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *SQLiteStorage) ListRuns(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return []RunRecord{}, nil
	}

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT run_id, started_at, finished_at, filter, concurrency, llm_enabled,
		       total, pass, fail, needs_review, errored
		FROM evaluation_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var run RunRecord
		var started, finished string
		var llm int

		if err := rows.Scan(
			&run.RunID, &started, &finished, &run.Filter, &run.Concurrency, &llm,
			&run.Total, &run.Pass, &run.Fail, &run.NeedsReview, &run.Errored,
		); err != nil {
			s.logger.Warn("failed to scan run row", zap.Error(err))
			continue
		}

		run.LLMEnabled = llm == 1
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			s.logger.Warn("failed to parse run timestamp", zap.String("run_id", run.RunID), zap.Error(err))
			continue
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			s.logger.Warn("failed to parse run timestamp", zap.String("run_id", run.RunID), zap.Error(err))
			continue
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Cleanup removes runs and cache entries older than retention.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	cutoff := time.Now().Add(-retention).UTC().Format(timeLayout)

	if _, err := s.db.Exec("DELETE FROM evaluation_runs WHERE started_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean up runs: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM report_cache WHERE generated_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean up report cache: %w", err)
	}
	return nil
}
