/*
Package evaluation merges the per-example analyses into one Record, persists
it as a JSON artifact, and runs the evaluation pipeline over many examples
with a bounded worker pool.

Artifact layout:

	<output_dir>/<quest>/<category>/<file-stem>.json

Re-evaluating an example overwrites its artifact; there is no versioning.
*/
package evaluation

import (
	"time"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/heuristic"
	"github.com/khanglvm/quest-eval/internal/llm"
)

// Record is the persisted evaluation of one example.
type Record struct {
	Metadata        Metadata        `json:"metadata"`
	Intent          corpus.Intent   `json:"intent"`
	Execution       Execution       `json:"execution"`
	BasicEvaluation BasicEvaluation `json:"basic_evaluation"`
	LLMAnalysis     llm.Payload     `json:"llm_analysis"`
	EnhancedIntent  llm.Payload     `json:"enhanced_intent"`
}

// Metadata identifies the example and the run that produced the record.
type Metadata struct {
	GeneratedAt      time.Time `json:"generated_at"`
	Quest            string    `json:"quest"`
	Category         string    `json:"category"`
	File             string    `json:"file"`
	RunID            string    `json:"run_id,omitempty"`
	EvaluatorVersion string    `json:"evaluator_version,omitempty"`
}

// Execution holds the transcript and its counters.
type Execution struct {
	Success     bool   `json:"success"`
	OutputLines int    `json:"output_lines"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	ResultSets  int    `json:"result_sets"`
	RawOutput   string `json:"raw_output"`
	ExitCode    int    `json:"exit_code"`
	DurationMS  int64  `json:"duration_ms"`
}

// BasicEvaluation is the heuristic assessment plus the detected pattern tags.
type BasicEvaluation struct {
	heuristic.Assessment
	Patterns []string `json:"patterns"`
}

// Ref returns the example identity of the record.
func (r Record) Ref() corpus.Ref {
	return corpus.Ref{
		Quest:    r.Metadata.Quest,
		Category: r.Metadata.Category,
		File:     r.Metadata.File,
	}
}

// Key returns "quest/category/file".
func (r Record) Key() string {
	return r.Ref().Key()
}
