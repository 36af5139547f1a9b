package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/metrics"
	"github.com/khanglvm/quest-eval/internal/version"
)

type evaluateOptions struct {
	filter      corpus.Filter
	concurrency int
	skipLLM     bool
	watch       bool
	metricsFile string
}

// NewEvaluateCmd creates the 'evaluate' command.
func NewEvaluateCmd(app *App) *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Execute and evaluate SQL examples",
		Long: `Execute every example under the configured corpus root, score its output
with the heuristic rules, request the LLM intent and assessment analyses, and
write one evaluation record per example.

Examples run concurrently up to --concurrency (default: evaluation.max_concurrent).
A failing example never stops the others. With --watch the command keeps
running and re-evaluates examples as they change on disk.`,
		Example: `  # Evaluate everything
  quest-eval evaluate

  # One quest, heuristics only
  quest-eval evaluate --quest advanced --skip-llm

  # A single file, re-run on every save
  quest-eval evaluate --quest basics --category select --file 01_hello --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.filter.Quest, "quest", "", "Only evaluate this quest")
	cmd.Flags().StringVar(&opts.filter.Category, "category", "", "Only evaluate this category")
	cmd.Flags().StringVar(&opts.filter.File, "file", "", "Only evaluate this file (name or stem)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "Examples evaluated in parallel (1-32)")
	cmd.Flags().BoolVar(&opts.skipLLM, "skip-llm", false, "Skip LLM analysis (heuristic evaluation only)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-evaluate examples when they change")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")

	return cmd
}

func describeFilter(f corpus.Filter) string {
	var parts []string
	if f.Quest != "" {
		parts = append(parts, "quest="+f.Quest)
	}
	if f.Category != "" {
		parts = append(parts, "category="+f.Category)
	}
	if f.File != "" {
		parts = append(parts, "file="+f.File)
	}
	return strings.Join(parts, ",")
}

func runEvaluate(ctx context.Context, app *App, opts evaluateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := app.ValidConfig()
	if err != nil {
		return err
	}
	logger := app.Logger()

	loader := app.Loader()
	examples, err := loader.Load(opts.filter)
	if err != nil {
		return err
	}
	if len(examples) == 0 && !opts.watch {
		fmt.Fprintln(app.Out, "No examples matched.")
		fmt.Fprintf(app.Out, "Corpus root: %s\n", loader.Root())
		return nil
	}

	executor, err := app.Executor()
	if err != nil {
		return fmt.Errorf("failed to create execution engine: %w", err)
	}
	defer executor.Close()

	db := app.Storage()
	defer db.Close()

	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)

	reports, err := app.ReportService(db, m)
	if err != nil {
		return err
	}

	concurrency := opts.concurrency
	if concurrency == 0 {
		concurrency = cfg.Evaluation.MaxConcurrent
	}

	pipeline := evaluation.NewPipeline(executor, app.Analyzer(), app.Records(), db, m, logger, evaluation.Options{
		Concurrency: evaluation.ClampConcurrency(concurrency),
		SkipLLM:     opts.skipLLM,
		Version:     version.Version,
	})

	if len(examples) > 0 {
		fmt.Fprintf(app.Out, "Evaluating %d examples...\n\n", len(examples))

		summary, runErr := pipeline.Run(ctx, examples, describeFilter(opts.filter), func(o evaluation.Outcome) {
			printOutcome(app, o)
		})

		quests := make(map[string]bool)
		for _, ex := range examples {
			quests[ex.Quest] = true
		}
		for quest := range quests {
			reports.Invalidate(quest)
		}

		printSummary(app, summary)

		if opts.metricsFile != "" {
			if err := metrics.WriteTextfile(opts.metricsFile, reg); err != nil {
				logger.Warn("failed to write metrics file", zap.String("path", opts.metricsFile), zap.Error(err))
			}
		}

		if runErr != nil {
			return runErr
		}
	}

	if !opts.watch {
		return nil
	}

	watcher, err := corpus.NewWatcher(loader, corpus.DefaultDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", loader.Root(), err)
	}

	fmt.Fprintf(app.Out, "\nWatching %s for changes (Ctrl+C to stop)...\n", loader.Root())
	err = watcher.Run(ctx, func(ctx context.Context, ex corpus.Example) {
		if !opts.filter.Matches(ex.Ref) {
			return
		}
		rec, err := pipeline.EvaluateOne(ctx, ex)
		printOutcome(app, evaluation.Outcome{Key: ex.Key(), Record: rec, Err: err})
		reports.Invalidate(ex.Quest)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printOutcome(app *App, o evaluation.Outcome) {
	if o.Err != nil {
		fmt.Fprintf(app.Out, "  %s %s %s  %s\n", verdictMark("ERROR"), colorVerdict("ERROR"), o.Key, gray(o.Err.Error()))
		return
	}

	basic := o.Record.BasicEvaluation
	verdict := string(basic.Verdict)
	line := fmt.Sprintf("  %s %s %2d/10  %s", verdictMark(verdict), colorVerdict(verdict), basic.Score, o.Key)
	if basic.Issues != "" {
		line += "  " + gray(basic.Issues)
	}
	fmt.Fprintln(app.Out, line)
}

func printSummary(app *App, s *evaluation.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintln(app.Out)
	fmt.Fprintf(app.Out, "%s %d examples in %s\n", bold("Run "+s.RunID[:8]), s.Total, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(app.Out, "  %s %d   %s %d   %s %d   %s %d\n",
		green("PASS"), s.Pass, red("FAIL"), s.Fail, yellow("NEEDS_REVIEW"), s.NeedsReview, gray("ERRORED"), s.Errored)
}
