package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/khanglvm/quest-eval/internal/corpus"
)

// ErrNoRecord is returned by Load when an example has not been evaluated.
var ErrNoRecord = errors.New("no evaluation record")

// Store reads and writes record artifacts under a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the artifact root.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the artifact path for an example.
func (s *Store) Path(ref corpus.Ref) string {
	return filepath.Join(s.dir, ref.Quest, ref.Category, ref.Stem()+".json")
}

// Save writes rec, replacing any previous artifact atomically.
func (s *Store) Save(rec Record) error {
	path := s.Path(rec.Ref())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.Key(), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close record: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

// Load reads the artifact for ref. A missing artifact yields ErrNoRecord.
func (s *Store) Load(ref corpus.Ref) (*Record, error) {
	data, err := os.ReadFile(s.Path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s", ErrNoRecord, ref.Key())
		}
		return nil, fmt.Errorf("failed to read record %s: %w", ref.Key(), err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", ref.Key(), err)
	}
	return &rec, nil
}
