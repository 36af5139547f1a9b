package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/storage"
)

// NewRunsCmd creates the 'runs' command for the evaluation run history.
func NewRunsCmd(app *App) *cobra.Command {
	var limit int
	var prune time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent evaluation runs",
		Long: `Display the evaluation runs recorded in the SQLite database, newest first.

--prune deletes runs and expired report cache entries older than the given
duration before listing.`,
		Example: `  quest-eval runs
  quest-eval runs --limit 5 --json
  quest-eval runs --prune 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(app, limit, prune, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete runs older than this duration")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runRuns(app *App, limit int, prune time.Duration, jsonOutput bool) error {
	db := app.Storage()
	defer db.Close()

	if !db.Enabled() {
		path := app.Config().Cache.DBPath
		if path == "" {
			path = storage.DefaultPath()
		}
		return fmt.Errorf("run history unavailable: database %s could not be opened", path)
	}

	if prune > 0 {
		if err := db.Cleanup(prune); err != nil {
			return fmt.Errorf("failed to prune runs: %w", err)
		}
	}

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(app.Out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(app.Out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(app.Out, "%-10s %-20s %9s %6s %5s %5s %5s %5s  %s\n", "RUN", "STARTED", "DURATION", "TOTAL", "PASS", "FAIL", "NR", "ERR", "FILTER")
	for _, r := range runs {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		filter := r.Filter
		if filter == "" {
			filter = "all"
		}
		fmt.Fprintf(app.Out, "%-10s %-20s %9s %6d %5d %5d %5d %5d  %s\n",
			id, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration().Round(time.Millisecond),
			r.Total, r.Pass, r.Fail, r.NeedsReview, r.Errored, filter)
	}
	return nil
}
