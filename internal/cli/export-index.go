package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/report"
)

// NewExportIndexCmd creates the export-index command.
func NewExportIndexCmd(app *App) *cobra.Command {
	var format string
	var output string
	var quest string

	cmd := &cobra.Command{
		Use:   "export-index",
		Short: "Export example verdicts for grep/jq",
		Long: `Generate an index file with one summary per example for offline grep/jq searching.

Each entry carries the example identity, verdict, score, issues, pattern
summary and LLM grade from its latest evaluation record. Examples without a
record are exported as UNEVALUATED.

Default output: <report.output_dir>/index.jsonl
Default format: JSONL (one example per line)`,
		Example: `  # Export to default location
  quest-eval export-index

  # Export as JSON array
  quest-eval export-index --format json

  # Custom output path
  quest-eval export-index --output ./verdicts.jsonl

Grep usage examples:
  # Every failing example
  grep '"verdict":"FAIL"' reports/index.jsonl | jq -r '.quest + "/" + .category + "/" + .file'

  # Examples mentioning a pattern
  grep -i "window functions" reports/index.jsonl | jq -r '.file'

  # Count verdicts per quest
  jq -r '.quest + " " + .verdict' reports/index.jsonl | sort | uniq -c`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportIndex(app, format, output, quest)
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format: json or jsonl")
	cmd.Flags().StringVar(&output, "output", "", "Output path (default: <report.output_dir>/index.jsonl)")
	cmd.Flags().StringVar(&quest, "quest", "", "Only export this quest")

	return cmd
}

// runExportIndex executes the export-index command.
func runExportIndex(app *App, format, output, quest string) error {
	if format != "json" && format != "jsonl" {
		return fmt.Errorf("unknown format %q (expected json or jsonl)", format)
	}

	refs, err := app.Loader().List(corpus.Filter{Quest: quest})
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintln(app.Out, "No examples found.")
		return nil
	}

	if output == "" {
		ext := ".jsonl"
		if format == "json" {
			ext = ".json"
		}
		output = filepath.Join(app.Config().Report.OutputDir, "index"+ext)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Acquire file lock to prevent concurrent writes
	lockFile, err := acquireFileLock(output)
	if err != nil {
		return fmt.Errorf("failed to acquire file lock: %w", err)
	}
	defer releaseFileLock(lockFile)

	store := app.Records()
	entries := make([]report.ExampleSummary, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, listSummary(store, ref))
	}

	if err := writeIndex(entries, output, format); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s Exported %d examples to %s\n", green("✓"), len(entries), output)
	return nil
}

// writeIndex writes the example index to a file.
func writeIndex(entries []report.ExampleSummary, path, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)

	if format == "json" {
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode index: %w", err)
		}
		return nil
	}

	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}
	return nil
}

// acquireFileLock acquires an exclusive lock on the index file.
func acquireFileLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// Non-blocking: a second export fails fast instead of queueing
	err = unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock (another export in progress?): %w", err)
	}

	return lockFile, nil
}

// releaseFileLock releases the file lock and removes the lock file.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}

	lockPath := lockFile.Name()

	unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	lockFile.Close()

	return os.Remove(lockPath)
}
