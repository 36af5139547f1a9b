package heuristic

// recommendation is one row of the verdict x score lookup.
type recommendation struct {
	verdict  Verdict
	minScore int
	text     string
}

// recommendations is scanned top to bottom; rows for a verdict are ordered by descending minScore.
var recommendations = []recommendation{
	{Pass, 9, "Excellent example. Consider featuring it as a reference for this category."},
	{Pass, 0, "Good example. Add more result output or a more advanced technique to strengthen it."},
	{NeedsReview, 6, "Review the warnings and confirm the output matches the stated purpose."},
	{NeedsReview, 0, "Expand the example so it produces meaningful, verifiable output."},
	{Fail, 3, "Fix the reported errors and re-run the example."},
	{Fail, 0, "Major rework needed: the example fails repeatedly and should be rewritten."},
}

const fallbackRecommendation = "Review this example manually."

// Recommend returns actionable prose for a verdict and score. It never returns "".
func Recommend(verdict Verdict, score int) string {
	for _, r := range recommendations {
		if r.verdict == verdict && score >= r.minScore {
			return r.text
		}
	}
	return fallbackRecommendation
}
