package evaluation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/engine"
	"github.com/khanglvm/quest-eval/internal/heuristic"
	"github.com/khanglvm/quest-eval/internal/llm"
	"github.com/khanglvm/quest-eval/internal/patterns"
	"github.com/khanglvm/quest-eval/internal/transcript"
)

func sampleRecord(t *testing.T) Record {
	t.Helper()
	ex := corpus.Example{
		Ref:    corpus.Ref{Quest: "basics", Category: "select", File: "01_hello.sql"},
		Source: "-- PURPOSE: say hello\nSELECT 'hello';",
		Intent: corpus.Intent{Purpose: "say hello"},
	}
	set := patterns.Detect(ex.Source)
	result := engine.Result{Transcript: " ?column?\n----------\n hello\n(1 row)\n", Succeeded: true, Duration: 42 * time.Millisecond}
	stats := transcript.Analyze(result.Transcript, result.Succeeded)

	a := NewAssembler("1.2.3")
	a.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	return a.Assemble(Inputs{
		Example:        ex,
		Patterns:       set,
		Result:         result,
		Stats:          stats,
		Heuristic:      heuristic.Score(set, stats, ex.Intent),
		LLMAnalysis:    llm.Ok(map[string]any{"summary": "fine"}),
		EnhancedIntent: llm.Degrade("completion failed: timeout", ""),
	}, "run-1")
}

func TestAssemble(t *testing.T) {
	rec := sampleRecord(t)

	assert.Equal(t, "basics/select/01_hello.sql", rec.Key())
	assert.Equal(t, "run-1", rec.Metadata.RunID)
	assert.Equal(t, "1.2.3", rec.Metadata.EvaluatorVersion)
	assert.Equal(t, 2026, rec.Metadata.GeneratedAt.Year())
	assert.Equal(t, "say hello", rec.Intent.Purpose)
	assert.Equal(t, 4, rec.Execution.OutputLines)
	assert.Equal(t, 1, rec.Execution.ResultSets)
	assert.Equal(t, int64(42), rec.Execution.DurationMS)
	assert.Equal(t, heuristic.Pass, rec.BasicEvaluation.Verdict)
	assert.Equal(t, 9, rec.BasicEvaluation.Score)
	assert.Equal(t, []string{"data_querying"}, rec.BasicEvaluation.Patterns)
}

func TestAssembleEmptyPatternsSerializeAsList(t *testing.T) {
	rec := NewAssembler("").Assemble(Inputs{Patterns: patterns.NewSet()}, "")
	assert.NotNil(t, rec.BasicEvaluation.Patterns)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"patterns":[]`)
}

func TestRecordJSONSchema(t *testing.T) {
	data, err := json.Marshal(sampleRecord(t))
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	for _, key := range []string{"metadata", "intent", "execution", "basic_evaluation", "llm_analysis", "enhanced_intent"} {
		assert.Contains(t, doc, key)
	}
	for _, key := range []string{"success", "output_lines", "errors", "warnings", "result_sets", "raw_output"} {
		assert.Contains(t, doc["execution"], key)
	}
	for _, key := range []string{"verdict", "score", "pattern_summary", "issues", "recommendation", "patterns"} {
		assert.Contains(t, doc["basic_evaluation"], key)
	}
	assert.Equal(t, "completion failed: timeout", doc["enhanced_intent"]["error"])
	assert.Equal(t, "", doc["enhanced_intent"]["raw_content"])
}

func TestStoreSaveLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord(t)

	require.NoError(t, store.Save(rec))
	assert.FileExists(t, filepath.Join(store.Dir(), "basics", "select", "01_hello.json"))

	got, err := store.Load(rec.Ref())
	require.NoError(t, err)
	assert.Equal(t, rec.BasicEvaluation, got.BasicEvaluation)
	assert.Equal(t, rec.Execution, got.Execution)
	assert.True(t, got.EnhancedIntent.IsDegraded())
	assert.Equal(t, "fine", got.LLMAnalysis.Summary())
	assert.True(t, rec.Metadata.GeneratedAt.Equal(got.Metadata.GeneratedAt))
}

func TestStoreOverwrite(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord(t)
	require.NoError(t, store.Save(rec))

	rec.BasicEvaluation.Score = 1
	require.NoError(t, store.Save(rec))

	got, err := store.Load(rec.Ref())
	require.NoError(t, err)
	assert.Equal(t, 1, got.BasicEvaluation.Score)

	entries, err := os.ReadDir(filepath.Dir(store.Path(rec.Ref())))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load(corpus.Ref{Quest: "q", Category: "c", File: "none.sql"})
	assert.True(t, IsNoRecord(err))
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := NewStore(t.TempDir())
	ref := corpus.Ref{Quest: "q", Category: "c", File: "bad.sql"}
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path(ref)), 0755))
	require.NoError(t, os.WriteFile(store.Path(ref), []byte("{not json"), 0644))

	_, err := store.Load(ref)
	assert.Error(t, err)
	assert.False(t, IsNoRecord(err))
}
