/*
Package main is the entry point for the quest-eval CLI.

quest-eval executes every SQL example in a quest/category/file tree, scores
the output with heuristic rules, asks an LLM for an intent and a quality
assessment, and rolls the per-example records up into cached reports.

Usage:

	quest-eval [command]

Available Commands:

	setup         Write a starter configuration file
	verify        Verify configuration and connections
	evaluate      Execute and evaluate SQL examples
	list          List examples and their latest verdicts
	report        Render an aggregate evaluation report
	search        Search evaluation records
	serve         Serve reports and records over HTTP
	export-index  Export example verdicts for grep/jq
	benchmark     Estimate LLM token consumption per example
	runs          Show recent evaluation runs
	version       Show version information

Examples:

	# Evaluate one quest with 8 workers
	quest-eval evaluate --quest basics --concurrency 8

	# Failures as Markdown
	quest-eval report --kind failures --format markdown --output -
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/cli"
	"github.com/khanglvm/quest-eval/internal/version"
)

func main() {
	app := cli.NewApp()

	rootCmd := &cobra.Command{
		Use:   "quest-eval",
		Short: "Evaluate SQL learning examples with heuristics and LLM analysis",
		Long: `quest-eval grades a corpus of SQL learning examples.

Each example is executed in an isolated database, its transcript is scored by
deterministic heuristic rules, and two LLM analyses (intent and quality
assessment) are requested concurrently. The merged result is stored as one
JSON record per example and aggregated into summary, detailed and failures
reports.

Configuration is read from ~/.quest-eval.yaml (or --config) and can be
overridden with QUEST_EVAL_* environment variables.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default: ~/.quest-eval.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(cli.NewSetupCmd(app))
	rootCmd.AddCommand(cli.NewVerifyCmd(app))
	rootCmd.AddCommand(cli.NewEvaluateCmd(app))
	rootCmd.AddCommand(cli.NewListCmd(app))
	rootCmd.AddCommand(cli.NewReportCmd(app))
	rootCmd.AddCommand(cli.NewSearchCmd(app))
	rootCmd.AddCommand(cli.NewServeCmd(app))
	rootCmd.AddCommand(cli.NewExportIndexCmd(app))
	rootCmd.AddCommand(cli.NewBenchmarkCmd(app))
	rootCmd.AddCommand(cli.NewRunsCmd(app))
	rootCmd.AddCommand(cli.NewVersionCmd(app))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
