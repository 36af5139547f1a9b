package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/heuristic"
)

// Aggregator walks the example tree and rolls up the stored records.
type Aggregator struct {
	loader *corpus.Loader
	store  *evaluation.Store
	logger *zap.Logger
}

// NewAggregator creates an aggregator over loader's tree and store's artifacts.
func NewAggregator(loader *corpus.Loader, store *evaluation.Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{loader: loader, store: store, logger: logger}
}

// Compute builds a report of kind for every example under quest ("" for all).
func (a *Aggregator) Compute(kind Kind, quest string) (*Report, error) {
	refs, err := a.loader.List(corpus.Filter{Quest: quest})
	if err != nil {
		return nil, err
	}

	summaries := make([]ExampleSummary, 0, len(refs))
	for _, ref := range refs {
		summaries = append(summaries, a.summarize(ref))
	}

	rep := Build(kind, quest, summaries)
	rep.GeneratedAt = time.Now().UTC()
	return rep, nil
}

// summarize loads one record. Missing or unreadable records yield an unevaluated summary.
func (a *Aggregator) summarize(ref corpus.Ref) ExampleSummary {
	summary := ExampleSummary{
		Quest:    ref.Quest,
		Category: ref.Category,
		File:     ref.File,
		Verdict:  Unevaluated,
	}

	rec, err := a.store.Load(ref)
	if err != nil {
		if !evaluation.IsNoRecord(err) {
			a.logger.Warn("unreadable evaluation record", zap.String("example", ref.Key()), zap.Error(err))
		}
		return summary
	}

	return Summarize(*rec)
}

// Summarize projects a record. Unknown verdicts become Unevaluated.
func Summarize(rec evaluation.Record) ExampleSummary {
	basic := rec.BasicEvaluation

	summary := ExampleSummary{
		Quest:          rec.Metadata.Quest,
		Category:       rec.Metadata.Category,
		File:           rec.Metadata.File,
		Verdict:        Unevaluated,
		Score:          basic.Score,
		Issues:         basic.Issues,
		PatternSummary: basic.PatternSummary,
		Recommendation: basic.Recommendation,
		Purpose:        rec.Intent.Purpose,
		EvaluatedAt:    rec.Metadata.GeneratedAt,
	}
	if v, ok := heuristic.ParseVerdict(string(basic.Verdict)); ok {
		summary.Verdict = string(v)
	}

	if d := rec.LLMAnalysis.Degraded(); d != nil {
		summary.LLMError = d.Error
	} else {
		summary.LLMGrade = rec.LLMAnalysis.Grade()
		summary.LLMSummary = rec.LLMAnalysis.Summary()
		if score, ok := rec.LLMAnalysis.Score(); ok {
			summary.LLMScore = score
		}
	}
	if summary.Purpose == "" {
		summary.Purpose = rec.EnhancedIntent.String("purpose")
	}

	return summary
}

// Build rolls up summaries, which must be sorted by quest, category and file.
func Build(kind Kind, quest string, summaries []ExampleSummary) *Report {
	rep := &Report{Kind: kind, Quest: quest, Quests: []QuestRollup{}}

	for _, s := range summaries {
		rep.Global.Add(s.Verdict)

		if n := len(rep.Quests); n == 0 || rep.Quests[n-1].Name != s.Quest {
			rep.Quests = append(rep.Quests, QuestRollup{Name: s.Quest})
		}
		q := &rep.Quests[len(rep.Quests)-1]
		q.Add(s.Verdict)

		if n := len(q.Categories); n == 0 || q.Categories[n-1].Name != s.Category {
			q.Categories = append(q.Categories, CategoryRollup{Name: s.Category})
		}
		q.Categories[len(q.Categories)-1].Add(s.Verdict)

		switch kind {
		case KindDetailed:
			rep.Examples = append(rep.Examples, s)
		case KindFailures:
			if s.Verdict == string(heuristic.Fail) || s.Verdict == string(heuristic.NeedsReview) {
				rep.Examples = append(rep.Examples, s)
			}
		}
	}

	return rep
}
