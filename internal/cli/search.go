package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/search"
)

// NewSearchCmd creates the 'search' command for full-text search over records.
func NewSearchCmd(app *App) *cobra.Command {
	var opts search.Options
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search evaluation records",
		Long: `Search the latest evaluation records by issues, detected patterns, purpose,
recommendations and LLM summaries.

Filters restrict results to one quest or verdict. With no query every record
passing the filters is listed.`,
		Example: `  quest-eval search "division by zero"
  quest-eval search join --verdict FAIL
  quest-eval search --quest advanced --verdict NEEDS_REVIEW --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runSearch(app, query, opts, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&opts.Quest, "quest", "", "Only search this quest")
	cmd.Flags().StringVar(&opts.Verdict, "verdict", "", "Only records with this verdict (PASS, FAIL, NEEDS_REVIEW)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runSearch(app *App, query string, opts search.Options, jsonOutput bool) error {
	opts.Verdict = strings.ToUpper(opts.Verdict)

	index, err := search.NewIndexer(app.Logger())
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}
	defer index.Close()

	if _, err := index.IndexStore(app.Loader(), app.Records()); err != nil {
		return fmt.Errorf("failed to index records: %w", err)
	}

	results, err := index.Search(query, opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(app.Out, results)
	}

	if len(results) == 0 {
		fmt.Fprintln(app.Out, "No matching records.")
		return nil
	}

	fmt.Fprintf(app.Out, "Results (%d):\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(app.Out, "  %s %s %2d/10  %s\n", verdictMark(r.Verdict), colorVerdict(r.Verdict), r.Score, r.ID)
		if r.Issues != "" {
			fmt.Fprintf(app.Out, "      %s\n", gray(r.Issues))
		}
		if r.PatternSummary != "" {
			fmt.Fprintf(app.Out, "      %s\n", r.PatternSummary)
		}
	}
	return nil
}
