package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/heuristic"
)

func TestNewEvaluateCmd(t *testing.T) {
	app, _ := newTestApp(t)
	cmd := NewEvaluateCmd(app)

	if cmd.Use != "evaluate" {
		t.Errorf("Expected Use='evaluate', got %q", cmd.Use)
	}

	for _, flag := range []string{"quest", "category", "file", "concurrency", "skip-llm", "watch", "metrics-file"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Flag %q not registered", flag)
		}
	}
}

func TestDescribeFilter(t *testing.T) {
	tests := []struct {
		filter corpus.Filter
		want   string
	}{
		{corpus.Filter{}, ""},
		{corpus.Filter{Quest: "basics"}, "quest=basics"},
		{corpus.Filter{Quest: "basics", Category: "joins", File: "01"}, "quest=basics,category=joins,file=01"},
	}

	for _, tt := range tests {
		if got := describeFilter(tt.filter); got != tt.want {
			t.Errorf("describeFilter(%+v) = %q, want %q", tt.filter, got, tt.want)
		}
	}
}

func TestRunEvaluateWritesRecords(t *testing.T) {
	app, out := newTestApp(t)
	writeExample(t, app, "basics", "select", "01_hello.sql", helloSQL)
	writeExample(t, app, "basics", "errors", "01_missing.sql", brokenSQL)

	metricsFile := filepath.Join(t.TempDir(), "quest_eval.prom")
	err := runEvaluate(context.Background(), app, evaluateOptions{concurrency: 2, metricsFile: metricsFile})
	require.NoError(t, err)

	store := app.Records()
	broken, err := store.Load(corpus.Ref{Quest: "basics", Category: "errors", File: "01_missing.sql"})
	require.NoError(t, err)
	assert.Equal(t, heuristic.Fail, broken.BasicEvaluation.Verdict)
	assert.NotNil(t, broken.LLMAnalysis.Degraded(), "llm analysis should be degraded when disabled")

	hello, err := store.Load(corpus.Ref{Quest: "basics", Category: "select", File: "01_hello.sql"})
	require.NoError(t, err)
	assert.Equal(t, "Select a greeting", hello.Intent.Purpose)
	assert.True(t, hello.Execution.Success)

	output := out.String()
	assert.Contains(t, output, "Evaluating 2 examples")
	assert.Contains(t, output, "basics/errors/01_missing.sql")
	assert.Contains(t, output, "FAIL")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "quest_eval_examples_evaluated_total")
}

func TestRunEvaluateRecordsRun(t *testing.T) {
	app, _ := newTestApp(t)
	writeExample(t, app, "basics", "errors", "01_missing.sql", brokenSQL)

	require.NoError(t, runEvaluate(context.Background(), app, evaluateOptions{filter: corpus.Filter{Quest: "basics"}}))

	db := app.Storage()
	defer db.Close()
	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "quest=basics", runs[0].Filter)
	assert.Equal(t, 1, runs[0].Fail)
}

func TestRunEvaluateFilter(t *testing.T) {
	app, out := newTestApp(t)
	writeExample(t, app, "basics", "errors", "01_missing.sql", brokenSQL)
	writeExample(t, app, "advanced", "errors", "01_missing.sql", brokenSQL)

	require.NoError(t, runEvaluate(context.Background(), app, evaluateOptions{filter: corpus.Filter{Quest: "advanced"}}))

	_, err := app.Records().Load(corpus.Ref{Quest: "basics", Category: "errors", File: "01_missing.sql"})
	assert.True(t, evaluation.IsNoRecord(err), "filtered-out example should not be evaluated")
	assert.Contains(t, out.String(), "Evaluating 1 examples")
}

func TestRunEvaluateNoExamples(t *testing.T) {
	app, out := newTestApp(t)

	require.NoError(t, runEvaluate(context.Background(), app, evaluateOptions{}))
	assert.Contains(t, out.String(), "No examples matched")
}

func TestRunEvaluateInvalidConfig(t *testing.T) {
	app, _ := newTestApp(t)
	app.Config().Engine.Kind = "postgres"

	err := runEvaluate(context.Background(), app, evaluateOptions{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "engine.dsn"), "error should name the missing field: %v", err)
}

func TestRunEvaluateInvalidatesReports(t *testing.T) {
	app, _ := newTestApp(t)
	writeExample(t, app, "basics", "errors", "01_missing.sql", brokenSQL)

	db := app.Storage()
	svc, err := app.ReportService(db, nil)
	require.NoError(t, err)
	before, err := svc.Get(context.Background(), "summary", "basics", false)
	require.NoError(t, err)
	assert.Equal(t, 1, before.Global.Unevaluated)
	db.Close()

	require.NoError(t, runEvaluate(context.Background(), app, evaluateOptions{}))

	db = app.Storage()
	defer db.Close()
	svc, err = app.ReportService(db, nil)
	require.NoError(t, err)
	after, err := svc.Get(context.Background(), "summary", "basics", false)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Global.Fail, "cached report should be invalidated by the run")
}
