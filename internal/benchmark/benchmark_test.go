package benchmark

import (
	"strings"
	"testing"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/llm"
)

func TestEstimateFast(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n", 0},
		{"a", 1},
		{"SELECT 1", 2},
		{strings.Repeat("x", 40), 10},
		{"a b c d e f", 6},
	}

	for _, tt := range tests {
		if got := EstimateFast(tt.text); got != tt.want {
			t.Errorf("EstimateFast(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountTokensMonotonic(t *testing.T) {
	short := CountTokens("SELECT id FROM users;")
	long := CountTokens(strings.Repeat("SELECT id FROM users;\n", 20))

	if short <= 0 {
		t.Errorf("expected positive count, got %d", short)
	}
	if long <= short {
		t.Errorf("longer text should cost more tokens: %d <= %d", long, short)
	}
	if CountTokens("") != 0 {
		t.Error("empty text should cost nothing")
	}
}

func TestRun(t *testing.T) {
	analyzer := llm.NewAnalyzer(nil, llm.DefaultOptions(), nil)

	small := corpus.Example{
		Ref:    corpus.Ref{Quest: "basics", Category: "select", File: "01.sql"},
		Source: "-- PURPOSE: hello\nSELECT 'hello';\n",
		Intent: corpus.Intent{Purpose: "hello"},
	}

	var big strings.Builder
	for i := 0; i < 200; i++ {
		big.WriteString("SELECT id, name, email FROM customers WHERE id > 100 ORDER BY name;\n")
	}
	large := corpus.Example{
		Ref:    corpus.Ref{Quest: "basics", Category: "select", File: "02.sql"},
		Source: big.String(),
	}

	transcripts := map[string]string{
		large.Key(): strings.Repeat(" id | name\n----+------\n  1 | a\n(1 row)\n", 50),
	}

	res := Run(analyzer, []corpus.Example{small, large}, transcripts)

	if len(res.Examples) != 2 {
		t.Fatalf("expected 2 estimates, got %d", len(res.Examples))
	}
	if res.Truncated != 1 {
		t.Errorf("expected 1 truncated example, got %d", res.Truncated)
	}

	s, l := res.Examples[0], res.Examples[1]
	if s.Example != "basics/select/01.sql" {
		t.Errorf("unexpected key %q", s.Example)
	}
	if s.TranscriptTokens != 0 {
		t.Errorf("missing transcript should count as empty, got %d", s.TranscriptTokens)
	}
	if s.IntentBudget != 800 || s.AssessmentBudget != 1500 {
		t.Errorf("unexpected budgets %d/%d", s.IntentBudget, s.AssessmentBudget)
	}

	// excerpts bound the prompt regardless of input size
	if l.InputTokens() <= l.PromptTokens() {
		t.Errorf("large example prompt (%d) should be smaller than its input (%d)", l.PromptTokens(), l.InputTokens())
	}

	if res.PromptTokens != s.PromptTokens()+l.PromptTokens() {
		t.Errorf("prompt total mismatch: %d", res.PromptTokens)
	}
	if res.CompletionBudget != 2*(800+1500) {
		t.Errorf("unexpected completion budget %d", res.CompletionBudget)
	}
	if res.MaxTokensPerExample() < l.PromptTokens()+2300 {
		t.Errorf("worst case should cover the largest example, got %d", res.MaxTokensPerExample())
	}
}

func TestFormatResult(t *testing.T) {
	res := &Result{
		Examples: []Estimate{{Example: "q/c/a.sql", IntentPromptTokens: 120, AssessmentPromptTokens: 340, SourceTokens: 50}},
		Exact:    false,
	}
	out := FormatResult(res)

	for _, want := range []string{"LLM ANALYSIS TOKEN ESTIMATE", "q/c/a.sql", "character heuristic", "EXAMPLE"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
