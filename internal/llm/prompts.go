package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/patterns"
)

// Excerpt bounds. Sources and transcripts are cut by lines first, then bytes.
const (
	SourceExcerptLines     = 50
	SourceExcerptBytes     = 800
	TranscriptExcerptLines = 20
	TranscriptExcerptBytes = 500

	// TruncatedMarker ends a cut excerpt.
	TruncatedMarker = "... (truncated)"
)

const intentSystemPrompt = "You are an expert SQL educator reviewing teaching examples. " +
	"Respond with a single JSON object and nothing else."

const assessmentSystemPrompt = "You are an expert SQL educator grading teaching examples " +
	"from their source and execution output. Respond with a single JSON object and nothing else."

// Excerpt returns at most maxLines lines and maxBytes bytes of text, cut on a
// rune boundary. A cut excerpt ends with a truncation marker line.
func Excerpt(text string, maxLines, maxBytes int) string {
	cut := false

	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		cut = true
	}
	out := strings.Join(lines, "\n")

	if len(out) > maxBytes {
		end := maxBytes
		for end > 0 && !utf8.RuneStart(out[end]) {
			end--
		}
		out = out[:end]
		cut = true
	}

	if cut {
		return strings.TrimRight(out, "\n") + "\n" + TruncatedMarker
	}
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not specified)"
	}
	return s
}

// IntentPrompt builds the user prompt asking the model to refine an example's intent.
func IntentPrompt(ex corpus.Example) string {
	var sb strings.Builder

	sb.WriteString("Analyze the intent of this SQL teaching example.\n\n")
	fmt.Fprintf(&sb, "Quest: %s\n", ex.Quest)
	fmt.Fprintf(&sb, "Category: %s\n", ex.Category)
	fmt.Fprintf(&sb, "Stated purpose: %s\n", orUnknown(ex.Intent.Purpose))
	fmt.Fprintf(&sb, "Stated concepts: %s\n", orUnknown(ex.Intent.Concepts))
	fmt.Fprintf(&sb, "Stated difficulty: %s\n\n", orUnknown(ex.Intent.Difficulty))

	sb.WriteString("Source:\n```sql\n")
	sb.WriteString(Excerpt(ex.Source, SourceExcerptLines, SourceExcerptBytes))
	sb.WriteString("\n```\n\n")

	sb.WriteString(`Return a JSON object with this shape:
{
  "purpose": "one or two sentences describing what the example teaches",
  "learning_outcomes": ["what a learner can do after studying it"],
  "expected_results": "what the output should show",
  "difficulty_assessment": {"level": "Beginner|Intermediate|Advanced", "justification": "..."},
  "concept_breakdown": {"primary": ["..."], "secondary": ["..."]}
}
`)
	return sb.String()
}

// AssessmentPrompt builds the user prompt for the comprehensive assessment.
func AssessmentPrompt(ex corpus.Example, set patterns.Set, transcript string) string {
	var sb strings.Builder

	sb.WriteString("Assess this SQL teaching example using its source and execution output.\n\n")
	fmt.Fprintf(&sb, "Quest: %s\n", ex.Quest)
	fmt.Fprintf(&sb, "Category: %s\n", ex.Category)
	fmt.Fprintf(&sb, "Purpose: %s\n", orUnknown(ex.Intent.Purpose))
	fmt.Fprintf(&sb, "Difficulty: %s\n", orUnknown(ex.Intent.Difficulty))
	fmt.Fprintf(&sb, "Concepts: %s\n", orUnknown(ex.Intent.Concepts))

	tags := set.Strings()
	if len(tags) == 0 {
		sb.WriteString("Detected patterns: none\n\n")
	} else {
		fmt.Fprintf(&sb, "Detected patterns: %s\n\n", strings.Join(tags, ", "))
	}

	sb.WriteString("Source:\n```sql\n")
	sb.WriteString(Excerpt(ex.Source, SourceExcerptLines, SourceExcerptBytes))
	sb.WriteString("\n```\n\n")

	sb.WriteString("Execution output:\n```\n")
	if strings.TrimSpace(transcript) == "" {
		sb.WriteString("(no output)")
	} else {
		sb.WriteString(Excerpt(transcript, TranscriptExcerptLines, TranscriptExcerptBytes))
	}
	sb.WriteString("\n```\n\n")

	sb.WriteString(`Return a JSON object with this shape:
{
  "technical_analysis": "correctness and quality of the SQL",
  "educational_analysis": "how well it teaches the stated concepts",
  "assessment": {"grade": "A|B|C|D|F", "score": 1-10, "overall_assessment": "PASS|FAIL|NEEDS_REVIEW"},
  "output_validation": "whether the output matches the expected results",
  "difficulty_calibration": "whether the stated difficulty fits",
  "recommendations": ["concrete improvements"],
  "summary": "one sentence"
}
`)
	return sb.String()
}
