/*
Package report aggregates evaluation records into hierarchical rollups and
caches the results with a time-to-live.

Rollups exist at three levels: global, per quest and per category. At every
level pass + fail + needs_review + unevaluated == total, where total is the
number of examples considered. An example without a readable record, or
whose record carries an unknown verdict, counts as unevaluated.
*/
package report

import (
	"fmt"
	"time"

	"github.com/khanglvm/quest-eval/internal/heuristic"
)

// Kind selects what a report includes beyond the rollups.
type Kind string

const (
	// KindSummary carries rollups only.
	KindSummary Kind = "summary"

	// KindDetailed carries rollups and every example.
	KindDetailed Kind = "detailed"

	// KindFailures carries rollups and the FAIL and NEEDS_REVIEW examples.
	KindFailures Kind = "failures"
)

// ParseKind validates a report kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSummary, KindDetailed, KindFailures:
		return Kind(s), nil
	case "":
		return KindSummary, nil
	default:
		return "", fmt.Errorf("unknown report kind %q (expected summary, detailed or failures)", s)
	}
}

// Unevaluated is the verdict shown for examples without a usable record.
const Unevaluated = "UNEVALUATED"

// Counts is a rollup at one level.
type Counts struct {
	Total       int `json:"total"`
	Pass        int `json:"pass"`
	Fail        int `json:"fail"`
	NeedsReview int `json:"needs_review"`
	Unevaluated int `json:"unevaluated"`
}

// Add counts one example by its verdict string.
func (c *Counts) Add(verdict string) {
	c.Total++
	v, ok := heuristic.ParseVerdict(verdict)
	if !ok {
		c.Unevaluated++
		return
	}
	switch v {
	case heuristic.Pass:
		c.Pass++
	case heuristic.Fail:
		c.Fail++
	case heuristic.NeedsReview:
		c.NeedsReview++
	}
}

// Balanced reports whether the per-verdict counts add up to Total.
func (c Counts) Balanced() bool {
	return c.Pass+c.Fail+c.NeedsReview+c.Unevaluated == c.Total
}

// PassRate returns Pass / Total, or 0 for an empty rollup.
func (c Counts) PassRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Pass) / float64(c.Total)
}

// CategoryRollup is the rollup of one category within a quest.
type CategoryRollup struct {
	Name string `json:"name"`
	Counts
}

// QuestRollup is the rollup of one quest and its categories.
type QuestRollup struct {
	Name string `json:"name"`
	Counts
	Categories []CategoryRollup `json:"categories"`
}

// ExampleSummary is the per-example projection of a record carried by detailed
// and failures reports.
type ExampleSummary struct {
	Quest          string    `json:"quest"`
	Category       string    `json:"category"`
	File           string    `json:"file"`
	Verdict        string    `json:"verdict"`
	Score          int       `json:"score,omitempty"`
	Issues         string    `json:"issues,omitempty"`
	PatternSummary string    `json:"pattern_summary,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Purpose        string    `json:"purpose,omitempty"`
	LLMGrade       string    `json:"llm_grade,omitempty"`
	LLMScore       int       `json:"llm_score,omitempty"`
	LLMSummary     string    `json:"llm_summary,omitempty"`
	LLMError       string    `json:"llm_error,omitempty"`
	EvaluatedAt    time.Time `json:"evaluated_at,omitempty"`
}

// Key returns "quest/category/file".
func (e ExampleSummary) Key() string {
	return e.Quest + "/" + e.Category + "/" + e.File
}

// Report is an aggregate over every example reachable under a quest filter.
type Report struct {
	Kind        Kind             `json:"kind"`
	Quest       string           `json:"quest,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	TTL         time.Duration    `json:"ttl"`
	Global      Counts           `json:"global"`
	Quests      []QuestRollup    `json:"quests"`
	Examples    []ExampleSummary `json:"examples,omitempty"`
}

// FreshAt reports whether the report is younger than its TTL at now.
func (r *Report) FreshAt(now time.Time) bool {
	return now.Sub(r.GeneratedAt) < r.TTL
}

// CacheKey identifies a report in a cache store.
func CacheKey(kind Kind, quest string) string {
	return string(kind) + "|" + quest
}
