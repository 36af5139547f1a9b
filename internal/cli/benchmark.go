package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/benchmark"
	"github.com/khanglvm/quest-eval/internal/corpus"
)

// NewBenchmarkCmd creates the 'benchmark' command for LLM token estimates.
func NewBenchmarkCmd(app *App) *cobra.Command {
	var filter corpus.Filter
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Estimate LLM token consumption per example",
		Long: `Estimate how many tokens the two LLM analyses will consume for each example.

For every example the intent and assessment prompts are built exactly as the
evaluate command builds them and counted with the cl100k_base tokenizer. The
transcript comes from the latest evaluation record when one exists.

The report compares the truncated prompts with the untruncated input and
shows the completion budget reserved by llm.intent.max_tokens and
llm.assessment.max_tokens. No completion service is contacted.`,
		Example: `  # Estimate the whole corpus
  quest-eval benchmark

  # One quest, as JSON
  quest-eval benchmark --quest advanced --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(app, filter, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&filter.Quest, "quest", "", "Only estimate this quest")
	cmd.Flags().StringVar(&filter.Category, "category", "", "Only estimate this category")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runBenchmark executes the token estimate.
func runBenchmark(app *App, filter corpus.Filter, jsonOutput bool) error {
	examples, err := app.Loader().Load(filter)
	if err != nil {
		return err
	}
	if len(examples) == 0 {
		return fmt.Errorf("no examples found under %s", app.Config().Corpus.Root)
	}

	records := app.Records()
	transcripts := make(map[string]string, len(examples))
	for _, ex := range examples {
		rec, err := records.Load(ex.Ref)
		if err != nil {
			continue
		}
		transcripts[ex.Key()] = rec.Execution.RawOutput
	}

	result := benchmark.Run(app.Analyzer(), examples, transcripts)

	if jsonOutput {
		return writeJSON(app.Out, result)
	}
	fmt.Fprint(app.Out, benchmark.FormatResult(result))
	return nil
}
