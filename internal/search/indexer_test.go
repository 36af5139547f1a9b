package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/heuristic"
	"github.com/khanglvm/quest-eval/internal/llm"
)

func record(quest, category, file string, verdict heuristic.Verdict, issues string, patterns ...string) evaluation.Record {
	return evaluation.Record{
		Metadata: evaluation.Metadata{Quest: quest, Category: category, File: file},
		Intent:   corpus.Intent{Purpose: "practice " + category},
		BasicEvaluation: evaluation.BasicEvaluation{
			Assessment: heuristic.Assessment{Verdict: verdict, Score: 7, Issues: issues},
			Patterns:   patterns,
		},
		LLMAnalysis: llm.Ok(map[string]any{"summary": "walks a hierarchy of employees"}),
	}
}

func sampleRecords() []evaluation.Record {
	return []evaluation.Record{
		record("advanced", "ctes", "01_tree.sql", heuristic.Pass, "", "recursive_cte", "common_table_expressions"),
		record("advanced", "windows", "01_rank.sql", heuristic.NeedsReview, "Very little output generated", "window_functions"),
		record("basics", "select", "01_hello.sql", heuristic.Fail, "2 errors found in output", "data_querying"),
	}
}

func newIndexed(t *testing.T) *Indexer {
	t.Helper()
	indexer, err := NewIndexer(nil)
	if err != nil {
		t.Fatalf("failed to create indexer: %v", err)
	}
	t.Cleanup(func() { indexer.Close() })

	if err := indexer.IndexRecords(sampleRecords()); err != nil {
		t.Fatalf("failed to index records: %v", err)
	}
	return indexer
}

func TestIndexRecords(t *testing.T) {
	indexer := newIndexed(t)

	count, err := indexer.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed records, got %d", count)
	}

	// reindexing replaces by id
	if err := indexer.IndexRecord(sampleRecords()[0]); err != nil {
		t.Fatalf("failed to reindex: %v", err)
	}
	count, _ = indexer.Count()
	if count != 3 {
		t.Errorf("reindex should not duplicate, got %d", count)
	}
}

func TestSearchText(t *testing.T) {
	indexer := newIndexed(t)

	results, err := indexer.Search("errors", Options{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.ID != "basics/select/01_hello.sql" {
		t.Errorf("unexpected id %q", r.ID)
	}
	if r.Verdict != "FAIL" || r.Quest != "basics" || r.Score != 7 {
		t.Errorf("unexpected result fields: %+v", r)
	}
	if r.Relevance <= 0 {
		t.Errorf("expected positive relevance, got %f", r.Relevance)
	}
}

func TestSearchPatterns(t *testing.T) {
	indexer := newIndexed(t)

	results, err := indexer.Search("recursive_cte", Options{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].File != "01_tree.sql" {
		t.Errorf("expected the recursive example, got %+v", results)
	}
}

func TestSearchFilters(t *testing.T) {
	indexer := newIndexed(t)

	results, err := indexer.Search("", Options{Quest: "advanced"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 advanced records, got %d", len(results))
	}
	if results[0].ID != "advanced/ctes/01_tree.sql" {
		t.Errorf("filter-only results should be ordered by id, got %q first", results[0].ID)
	}

	results, err = indexer.Search("", Options{Verdict: "needs_review"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Category != "windows" {
		t.Errorf("expected the windows example, got %+v", results)
	}

	results, err = indexer.Search("hierarchy", Options{Verdict: "PASS"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Quest != "advanced" {
		t.Errorf("expected one PASS hit, got %+v", results)
	}
}

func TestSearchLimit(t *testing.T) {
	indexer := newIndexed(t)

	results, err := indexer.Search("", Options{Limit: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestRemoveQuest(t *testing.T) {
	indexer := newIndexed(t)

	if err := indexer.RemoveQuest("advanced"); err != nil {
		t.Fatalf("failed to remove quest: %v", err)
	}
	count, _ := indexer.Count()
	if count != 1 {
		t.Errorf("expected 1 remaining record, got %d", count)
	}
}

func TestIndexStore(t *testing.T) {
	root := t.TempDir()
	store := evaluation.NewStore(t.TempDir())

	for _, rec := range sampleRecords() {
		dir := filepath.Join(root, rec.Metadata.Quest, rec.Metadata.Category)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, rec.Metadata.File), []byte("SELECT 1;"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := store.Save(rec); err != nil {
			t.Fatal(err)
		}
	}
	// an example that has not been evaluated yet
	if err := os.WriteFile(filepath.Join(root, "basics", "select", "02_new.sql"), []byte("SELECT 2;"), 0644); err != nil {
		t.Fatal(err)
	}

	indexer, err := NewIndexer(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer indexer.Close()

	n, err := indexer.IndexStore(corpus.NewLoader(root, corpus.Options{}), store)
	if err != nil {
		t.Fatalf("IndexStore failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 indexed records, got %d", n)
	}
}

func TestNewIndexerWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "records.bleve")

	indexer, err := NewIndexerWithPath(path, nil)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if err := indexer.IndexRecords(sampleRecords()); err != nil {
		t.Fatal(err)
	}
	indexer.Close()

	reopened, err := NewIndexerWithPath(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen index: %v", err)
	}
	defer reopened.Close()

	count, _ := reopened.Count()
	if count != 3 {
		t.Errorf("expected 3 persisted records, got %d", count)
	}
}
