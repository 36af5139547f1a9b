/*
Package heuristic grades an example from its detected patterns and transcript
counters. Scoring is a pure function: the same inputs always give the same
Assessment.
*/
package heuristic

import (
	"fmt"
	"strings"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/patterns"
	"github.com/khanglvm/quest-eval/internal/transcript"
)

// Verdict is the outcome class of an assessment.
type Verdict string

const (
	Pass        Verdict = "PASS"
	Fail        Verdict = "FAIL"
	NeedsReview Verdict = "NEEDS_REVIEW"
)

// ParseVerdict maps a stored verdict string back to a Verdict.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToUpper(strings.TrimSpace(s))) {
	case Pass:
		return Pass, true
	case Fail:
		return Fail, true
	case NeedsReview:
		return NeedsReview, true
	default:
		return "", false
	}
}

const (
	// minScore and maxScore bound every final score.
	minScore = 1
	maxScore = 10

	// failFloor and failCeil bound a failing score after adjustments.
	failFloor = 2
	failCeil  = 4

	// passBase is the starting score for a clean transcript.
	passBase = 8

	// littleOutputLines is the line count under which a result-less transcript needs review.
	littleOutputLines = 5

	// longOutputLines earns a bonus point when exceeded.
	longOutputLines = 20
)

// Assessment is the deterministic verdict for one example.
type Assessment struct {
	Verdict        Verdict `json:"verdict"`
	Score          int     `json:"score"`
	Issues         string  `json:"issues"`
	PatternSummary string  `json:"pattern_summary"`
	Recommendation string  `json:"recommendation"`
}

// Score grades an example. The intent metadata does not currently affect the result.
func Score(set patterns.Set, stats transcript.Stats, _ corpus.Intent) Assessment {
	verdict, score, issues := classify(stats)

	switch {
	case set.Len() > 0 && set.HasHighValue():
		score++
	case set.Len() == 0:
		score--
	}
	if verdict == Fail {
		score = clamp(score, failFloor, failCeil)
	} else {
		score = clamp(score, minScore, maxScore)
	}

	return Assessment{
		Verdict:        verdict,
		Score:          score,
		Issues:         issues,
		PatternSummary: Summarize(set),
		Recommendation: Recommend(verdict, score),
	}
}

// classify applies the verdict cascade; the first matching branch wins.
func classify(stats transcript.Stats) (Verdict, int, string) {
	if stats.ErrorCount > 0 {
		return Fail, tier(stats.ErrorCount, 4, 3, 2), fmt.Sprintf("%d %s found in output", stats.ErrorCount, plural(stats.ErrorCount, "error"))
	}

	if stats.WarningCount > 0 {
		return NeedsReview, tier(stats.WarningCount, 7, 6, 5), fmt.Sprintf("%d %s found in output", stats.WarningCount, plural(stats.WarningCount, "warning"))
	}

	if stats.ResultSetCount == 0 && stats.LineCount < littleOutputLines {
		return NeedsReview, 5, "Very little output generated"
	}

	score := passBase
	if stats.ResultSetCount > 0 {
		score++
	}
	if stats.LineCount > longOutputLines {
		score++
	}
	if score > maxScore {
		score = maxScore
	}
	return Pass, score, ""
}

// tier picks one, few or many by count: 1, 2-3, 4+.
func tier(count, one, few, many int) int {
	switch {
	case count == 1:
		return one
	case count <= 3:
		return few
	default:
		return many
	}
}

// Summarize reports the tag count and names in rule order.
func Summarize(set patterns.Set) string {
	if set.Len() == 0 {
		return "No recognized patterns detected"
	}
	noun := "patterns"
	if set.Len() == 1 {
		noun = "pattern"
	}
	return fmt.Sprintf("%d %s detected: %s", set.Len(), noun, strings.Join(set.Strings(), ", "))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
