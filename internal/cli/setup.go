package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/config"
)

type setupOptions struct {
	corpusRoot string
	engine     string
	force      bool
}

// NewSetupCmd creates the 'setup' command for writing a starter configuration.
//
// The setup command:
// 1. Starts from the built-in defaults
// 2. Applies the corpus root and engine given on the command line
// 3. Validates the result
// 4. Saves it to the config path, backing up any previous file
func NewSetupCmd(app *App) *cobra.Command {
	var opts setupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a starter configuration file",
		Long: `Write a quest-eval configuration file populated with defaults.

The file is written to --config, or ~/.quest-eval.yaml when no path is given.
An existing file is only replaced with --force; the previous version is kept
next to it with a .bak suffix.

Engines:
  • sqlite    in-memory SQLite database per example (default)
  • postgres  one schema per example on the server at engine.dsn
  • process   run engine.command with the example on stdin`,
		Example: `  # Defaults in the home directory
  quest-eval setup

  # Project-local config for a Postgres corpus
  quest-eval --config ./quest-eval.yaml setup --corpus-root ./quests --engine postgres

  # Replace an existing file
  quest-eval setup --force`,
		// An unreadable existing config must not block rewriting it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = app.Init()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.corpusRoot, "corpus-root", "", "Root directory of the example tree")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "Execution engine: sqlite, postgres or process")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing configuration file")

	return cmd
}

// runSetup writes the starter configuration.
func runSetup(app *App, opts setupOptions) error {
	configPath := app.ConfigPath
	if configPath == "" {
		var err error
		configPath, err = config.GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if _, err := os.Stat(configPath); err == nil && !opts.force {
		fmt.Fprintf(app.Out, "Configuration already exists: %s\n", configPath)
		fmt.Fprintln(app.Out, "Use --force to overwrite it (a .bak copy is kept).")
		return nil
	}

	cfg := config.NewConfig()
	if opts.corpusRoot != "" {
		abs, err := filepath.Abs(config.ExpandHome(opts.corpusRoot))
		if err != nil {
			return fmt.Errorf("invalid corpus root: %w", err)
		}
		cfg.Corpus.Root = abs
	}
	if opts.engine != "" {
		cfg.Engine.Kind = opts.engine
	}
	cfg.Normalize()

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(app.Out, "%s Wrote configuration to %s\n", green("✓"), configPath)
	fmt.Fprintln(app.Out)
	fmt.Fprintln(app.Out, "Next steps:")
	fmt.Fprintf(app.Out, "  export %s=...        # enable LLM analysis\n", cfg.LLM.APIKeyEnv)
	fmt.Fprintln(app.Out, "  quest-eval verify")
	fmt.Fprintln(app.Out, "  quest-eval evaluate")
	return nil
}
