package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/patterns"
)

func TestExcerpt(t *testing.T) {
	short := "SELECT 1;\nSELECT 2;"
	assert.Equal(t, short, Excerpt(short, 50, 800))

	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, "x")
	}
	got := Excerpt(strings.Join(lines, "\n"), 50, 800)
	assert.True(t, strings.HasSuffix(got, "\n"+TruncatedMarker))
	assert.Equal(t, 51, strings.Count(got, "\n")+1, "50 lines plus marker")

	long := strings.Repeat("abcdefghij", 100)
	got = Excerpt(long, 50, 800)
	assert.Equal(t, long[:800]+"\n"+TruncatedMarker, got)
}

func TestExcerptRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 500) // 1000 bytes
	got := Excerpt(text, 50, 801)

	body := strings.TrimSuffix(got, "\n"+TruncatedMarker)
	assert.True(t, utf8.ValidString(body))
	assert.Equal(t, 800, len(body))
}

func testExample() corpus.Example {
	return corpus.Example{
		Ref:    corpus.Ref{Quest: "advanced-queries", Category: "ctes", File: "01_tree.sql"},
		Source: "-- PURPOSE: Walk a tree\nWITH RECURSIVE t AS (SELECT 1) SELECT * FROM t;",
		Intent: corpus.Intent{Purpose: "Walk a tree"},
	}
}

func TestIntentPrompt(t *testing.T) {
	prompt := IntentPrompt(testExample())

	assert.Contains(t, prompt, "Quest: advanced-queries")
	assert.Contains(t, prompt, "Stated purpose: Walk a tree")
	assert.Contains(t, prompt, "Stated difficulty: (not specified)")
	assert.Contains(t, prompt, "WITH RECURSIVE")
	assert.Contains(t, prompt, `"learning_outcomes"`)
	assert.Contains(t, prompt, `"concept_breakdown"`)
}

func TestAssessmentPrompt(t *testing.T) {
	ex := testExample()
	set := patterns.Detect(ex.Source)

	prompt := AssessmentPrompt(ex, set, "")
	assert.Contains(t, prompt, "Detected patterns: data_querying, common_table_expression, recursive_cte, subquery")
	assert.Contains(t, prompt, "(no output)")
	assert.Contains(t, prompt, `"overall_assessment"`)

	transcript := strings.Repeat("row\n", 40)
	prompt = AssessmentPrompt(ex, patterns.NewSet(), transcript)
	assert.Contains(t, prompt, "Detected patterns: none")
	assert.Contains(t, prompt, TruncatedMarker)
}
