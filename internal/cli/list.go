package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/report"
)

// NewListCmd creates the 'list' command for listing examples and their verdicts.
func NewListCmd(app *App) *cobra.Command {
	var filter corpus.Filter
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List examples and their latest verdicts",
		Long: `Display every example under the corpus root with the verdict and score of
its latest evaluation record. Examples without a record are UNEVALUATED.`,
		Example: `  quest-eval list
  quest-eval ls --quest basics
  quest-eval list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(app, filter, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&filter.Quest, "quest", "", "Only list this quest")
	cmd.Flags().StringVar(&filter.Category, "category", "", "Only list this category")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runList prints the examples matching filter.
func runList(app *App, filter corpus.Filter, jsonOutput bool) error {
	loader := app.Loader()
	refs, err := loader.List(filter)
	if err != nil {
		return err
	}

	store := app.Records()
	summaries := make([]report.ExampleSummary, 0, len(refs))
	for _, ref := range refs {
		summaries = append(summaries, listSummary(store, ref))
	}

	if jsonOutput {
		return writeJSON(app.Out, summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(app.Out, "No examples found.")
		fmt.Fprintf(app.Out, "Corpus root: %s\n", loader.Root())
		return nil
	}

	fmt.Fprintf(app.Out, "Examples (%d):\n\n", len(summaries))
	var counts report.Counts
	for _, s := range summaries {
		counts.Add(s.Verdict)
		score := "  -  "
		if s.Verdict != report.Unevaluated {
			score = fmt.Sprintf("%2d/10", s.Score)
		}
		fmt.Fprintf(app.Out, "  %s %s %s  %s\n", verdictMark(s.Verdict), colorVerdict(s.Verdict), score, s.Key())
	}
	fmt.Fprintf(app.Out, "\n%s\n", formatCounts(counts))
	return nil
}

func listSummary(store *evaluation.Store, ref corpus.Ref) report.ExampleSummary {
	rec, err := store.Load(ref)
	if err != nil {
		return report.ExampleSummary{
			Quest:    ref.Quest,
			Category: ref.Category,
			File:     ref.File,
			Verdict:  report.Unevaluated,
		}
	}
	return report.Summarize(*rec)
}
