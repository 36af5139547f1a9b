/*
Package search implements full-text search over evaluation records.

Records are projected into flat documents and indexed with bleve. Free text
matches issues, patterns, purpose, recommendations and LLM summaries; quest,
category and verdict are exact-match keyword fields used as filters.
*/
package search

import (
	"strings"

	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/report"
)

// Result is a single search hit with its relevance score.
type Result struct {
	ID             string  `json:"id"`
	Quest          string  `json:"quest"`
	Category       string  `json:"category"`
	File           string  `json:"file"`
	Verdict        string  `json:"verdict"`
	Score          int     `json:"score"`
	Issues         string  `json:"issues,omitempty"`
	PatternSummary string  `json:"pattern_summary,omitempty"`
	Relevance      float64 `json:"relevance"`
}

// Document is a record as stored in the search index.
type Document struct {
	Quest          string `json:"quest"`
	Category       string `json:"category"`
	File           string `json:"file"`
	Verdict        string `json:"verdict"`
	Score          int    `json:"score"`
	Issues         string `json:"issues"`
	Patterns       string `json:"patterns"`
	PatternSummary string `json:"pattern_summary"`
	Purpose        string `json:"purpose"`
	Recommendation string `json:"recommendation"`
	LLMSummary     string `json:"llm_summary"`
}

// NewDocument projects rec into an index document keyed by "quest/category/file".
func NewDocument(rec evaluation.Record) (string, Document) {
	s := report.Summarize(rec)
	return s.Key(), Document{
		Quest:          s.Quest,
		Category:       s.Category,
		File:           s.File,
		Verdict:        s.Verdict,
		Score:          s.Score,
		Issues:         s.Issues,
		Patterns:       strings.Join(rec.BasicEvaluation.Patterns, " "),
		PatternSummary: s.PatternSummary,
		Purpose:        s.Purpose,
		Recommendation: s.Recommendation,
		LLMSummary:     s.LLMSummary,
	}
}
