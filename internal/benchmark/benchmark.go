/*
Package benchmark estimates the token cost of LLM analysis for a set of examples.

For each example it counts the tokens of both prompts as they would be sent
(system prompt plus user prompt with bounded source and transcript excerpts)
and compares them with the tokens of the untruncated inputs. Counting uses
tiktoken's cl100k_base encoding when available and a character heuristic
otherwise.
*/
package benchmark

import (
	"fmt"
	"strings"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/llm"
	"github.com/khanglvm/quest-eval/internal/patterns"
)

// Estimate is the token accounting for one example.
type Estimate struct {
	Example string `json:"example"`

	IntentPromptTokens     int `json:"intent_prompt_tokens"`
	AssessmentPromptTokens int `json:"assessment_prompt_tokens"`

	// Untruncated inputs.
	SourceTokens     int `json:"source_tokens"`
	TranscriptTokens int `json:"transcript_tokens"`

	// Completion budgets from the request options.
	IntentBudget     int `json:"intent_budget"`
	AssessmentBudget int `json:"assessment_budget"`
}

// PromptTokens is the total sent across both calls.
func (e Estimate) PromptTokens() int {
	return e.IntentPromptTokens + e.AssessmentPromptTokens
}

// InputTokens is what both calls would carry if the source and transcript
// were sent whole (the source is sent twice).
func (e Estimate) InputTokens() int {
	return 2*e.SourceTokens + e.TranscriptTokens
}

// Result aggregates estimates over examples.
type Result struct {
	Examples         []Estimate `json:"examples"`
	PromptTokens     int        `json:"prompt_tokens"`
	InputTokens      int        `json:"input_tokens"`
	CompletionBudget int        `json:"completion_budget"`
	Truncated        int        `json:"truncated_examples"`
	Exact            bool       `json:"exact"`
}

// MaxTokensPerExample is the worst-case spend of one example: both prompts plus both budgets.
func (r *Result) MaxTokensPerExample() int {
	best := 0
	for _, e := range r.Examples {
		if n := e.PromptTokens() + e.IntentBudget + e.AssessmentBudget; n > best {
			best = n
		}
	}
	return best
}

// Run estimates every example. transcripts maps example keys to the last
// recorded transcript; missing entries count as empty output.
func Run(analyzer *llm.Analyzer, examples []corpus.Example, transcripts map[string]string) *Result {
	res := &Result{Examples: make([]Estimate, 0, len(examples)), Exact: Exact()}

	for _, ex := range examples {
		transcript := transcripts[ex.Key()]
		intentReq := analyzer.IntentRequest(ex)
		assessReq := analyzer.AssessmentRequest(ex, patterns.Detect(ex.Source), transcript)

		e := Estimate{
			Example:                ex.Key(),
			IntentPromptTokens:     CountTokens(intentReq.SystemPrompt) + CountTokens(intentReq.UserPrompt),
			AssessmentPromptTokens: CountTokens(assessReq.SystemPrompt) + CountTokens(assessReq.UserPrompt),
			SourceTokens:           CountTokens(ex.Source),
			TranscriptTokens:       CountTokens(transcript),
			IntentBudget:           intentReq.MaxTokens,
			AssessmentBudget:       assessReq.MaxTokens,
		}

		res.Examples = append(res.Examples, e)
		res.PromptTokens += e.PromptTokens()
		res.InputTokens += e.InputTokens()
		res.CompletionBudget += e.IntentBudget + e.AssessmentBudget
		if strings.Contains(intentReq.UserPrompt, llm.TruncatedMarker) || strings.Contains(assessReq.UserPrompt, llm.TruncatedMarker) {
			res.Truncated++
		}
	}

	return res
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *Result) string {
	var sb strings.Builder

	method := "tiktoken " + Encoding
	if !result.Exact {
		method = "character heuristic"
	}

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║            LLM ANALYSIS TOKEN ESTIMATE                       ║\n")
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n\n")

	fmt.Fprintf(&sb, "  Examples:           %d (%d with truncated excerpts)\n", len(result.Examples), result.Truncated)
	fmt.Fprintf(&sb, "  Prompt tokens:      %d\n", result.PromptTokens)
	fmt.Fprintf(&sb, "  Untruncated input:  %d\n", result.InputTokens)
	fmt.Fprintf(&sb, "  Completion budget:  %d\n", result.CompletionBudget)
	fmt.Fprintf(&sb, "  Worst case/example: %d\n", result.MaxTokensPerExample())
	fmt.Fprintf(&sb, "  Counting:           %s\n\n", method)

	if len(result.Examples) == 0 {
		return sb.String()
	}

	fmt.Fprintf(&sb, "  %-48s %8s %8s %8s\n", "EXAMPLE", "INTENT", "ASSESS", "INPUT")
	for _, e := range result.Examples {
		fmt.Fprintf(&sb, "  %-48s %8d %8d %8d\n", e.Example, e.IntentPromptTokens, e.AssessmentPromptTokens, e.InputTokens())
	}
	return sb.String()
}
