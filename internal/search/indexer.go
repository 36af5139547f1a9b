package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
)

// Indexer manages the search index for evaluation records.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
	logger     *zap.Logger
}

// NewIndexer creates a new search indexer with in-memory Bleve index.
func NewIndexer(logger *zap.Logger) (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return newIndexer(index, "", logger), nil
}

// NewIndexerWithPath creates a new indexer with persistent disk storage.
func NewIndexerWithPath(indexPath string, logger *zap.Logger) (*Indexer, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		// existing index
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}
	return newIndexer(index, indexPath, logger), nil
}

func newIndexer(index bleve.Index, path string, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{bleveIndex: index, indexPath: path, logger: logger}
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	for _, field := range []string{"quest", "category", "verdict"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		doc.AddFieldMappingsAt(field, fm)
	}

	for _, field := range []string{"file", "issues", "patterns", "pattern_summary", "purpose", "recommendation", "llm_summary"} {
		doc.AddFieldMappingsAt(field, bleve.NewTextFieldMapping())
	}

	score := bleve.NewNumericFieldMapping()
	score.IncludeInAll = false
	doc.AddFieldMappingsAt("score", score)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = doc
	return indexMapping
}

// IndexRecords indexes recs in one batch, replacing earlier versions.
func (i *Indexer) IndexRecords(recs []evaluation.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, rec := range recs {
		id, doc := NewDocument(rec)
		if err := batch.Index(id, doc); err != nil {
			i.logger.Warn("failed to index record", zap.String("example", id), zap.Error(err))
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index records: %w", err)
	}
	return nil
}

// IndexRecord indexes a single record.
func (i *Indexer) IndexRecord(rec evaluation.Record) error {
	return i.IndexRecords([]evaluation.Record{rec})
}

// IndexStore indexes every stored record for the examples loader lists.
// Examples without a record are skipped. It returns the number indexed.
func (i *Indexer) IndexStore(loader *corpus.Loader, store *evaluation.Store) (int, error) {
	refs, err := loader.List(corpus.Filter{})
	if err != nil {
		return 0, err
	}

	recs := make([]evaluation.Record, 0, len(refs))
	for _, ref := range refs {
		rec, err := store.Load(ref)
		if err != nil {
			if !evaluation.IsNoRecord(err) {
				i.logger.Warn("skipping unreadable record", zap.String("example", ref.Key()), zap.Error(err))
			}
			continue
		}
		recs = append(recs, *rec)
	}

	if err := i.IndexRecords(recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// RemoveQuest removes every document of a quest (for reindexing).
func (i *Indexer) RemoveQuest(quest string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	q := bleve.NewTermQuery(quest)
	q.SetField("quest")

	total, err := i.bleveIndex.DocCount()
	if err != nil {
		return fmt.Errorf("failed to get doc count: %w", err)
	}
	results, err := i.bleveIndex.Search(bleve.NewSearchRequestOptions(q, int(total), 0, false))
	if err != nil {
		return fmt.Errorf("failed to find quest docs: %w", err)
	}

	batch := i.bleveIndex.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}
	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch delete: %w", err)
	}
	return nil
}

// Count returns the total number of indexed records.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}
