package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/khanglvm/quest-eval/internal/heuristic"
	"github.com/khanglvm/quest-eval/internal/report"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// colorVerdict pads and colors a verdict for aligned terminal output.
func colorVerdict(verdict string) string {
	padded := fmt.Sprintf("%-12s", verdict)
	switch verdict {
	case string(heuristic.Pass):
		return green(padded)
	case string(heuristic.Fail), "ERROR":
		return red(padded)
	case string(heuristic.NeedsReview):
		return yellow(padded)
	default:
		return gray(padded)
	}
}

func verdictMark(verdict string) string {
	switch verdict {
	case string(heuristic.Pass):
		return green("✓")
	case string(heuristic.Fail), "ERROR":
		return red("✗")
	case string(heuristic.NeedsReview):
		return yellow("!")
	default:
		return gray("·")
	}
}

// formatCounts renders a rollup on one line.
func formatCounts(c report.Counts) string {
	parts := []string{
		fmt.Sprintf("%d total", c.Total),
		green(fmt.Sprintf("%d pass", c.Pass)),
		red(fmt.Sprintf("%d fail", c.Fail)),
		yellow(fmt.Sprintf("%d needs review", c.NeedsReview)),
	}
	if c.Unevaluated > 0 {
		parts = append(parts, gray(fmt.Sprintf("%d unevaluated", c.Unevaluated)))
	}
	return strings.Join(parts, ", ")
}

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
