package evaluation

import (
	"time"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/engine"
	"github.com/khanglvm/quest-eval/internal/heuristic"
	"github.com/khanglvm/quest-eval/internal/llm"
	"github.com/khanglvm/quest-eval/internal/patterns"
	"github.com/khanglvm/quest-eval/internal/transcript"
)

// Inputs are the outputs of every analysis stage for one example.
type Inputs struct {
	Example        corpus.Example
	Patterns       patterns.Set
	Result         engine.Result
	Stats          transcript.Stats
	Heuristic      heuristic.Assessment
	LLMAnalysis    llm.Payload
	EnhancedIntent llm.Payload
}

// Assembler merges stage outputs into a Record. It makes no decisions
// beyond stamping the generation time.
type Assembler struct {
	version string
	now     func() time.Time
}

// NewAssembler creates an assembler that stamps records with version.
func NewAssembler(version string) *Assembler {
	return &Assembler{version: version, now: time.Now}
}

// Assemble builds the record for in.
func (a *Assembler) Assemble(in Inputs, runID string) Record {
	ex := in.Example

	tags := in.Patterns.Strings()
	if tags == nil {
		tags = []string{}
	}

	return Record{
		Metadata: Metadata{
			GeneratedAt:      a.now().UTC(),
			Quest:            ex.Quest,
			Category:         ex.Category,
			File:             ex.File,
			RunID:            runID,
			EvaluatorVersion: a.version,
		},
		Intent: ex.Intent,
		Execution: Execution{
			Success:     in.Stats.Succeeded,
			OutputLines: in.Stats.LineCount,
			Errors:      in.Stats.ErrorCount,
			Warnings:    in.Stats.WarningCount,
			ResultSets:  in.Stats.ResultSetCount,
			RawOutput:   in.Result.Transcript,
			ExitCode:    in.Result.ExitCode,
			DurationMS:  in.Result.Duration.Milliseconds(),
		},
		BasicEvaluation: BasicEvaluation{
			Assessment: in.Heuristic,
			Patterns:   tags,
		},
		LLMAnalysis:    in.LLMAnalysis,
		EnhancedIntent: in.EnhancedIntent,
	}
}
