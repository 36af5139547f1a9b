package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/config"
	"github.com/khanglvm/quest-eval/internal/corpus"
)

// NewVerifyCmd creates the 'verify' command for verifying configuration.
func NewVerifyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify configuration and connections",
		Long: `Verify that the configuration is valid, the corpus root exists, the
execution engine is reachable and the LLM credentials are present.`,
		Example: `  quest-eval verify
  quest-eval verify --config ./quest-eval.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), app)
		},
	}

	return cmd
}

var errVerifyFailed = errors.New("verification failed")

// runVerify checks every configured dependency and reports each one.
func runVerify(ctx context.Context, app *App) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := app.Config()
	failed := false

	check := func(ok bool, format string, args ...any) {
		mark := green("✓")
		if !ok {
			mark = red("✗")
			failed = true
		}
		fmt.Fprintf(app.Out, "%s %s\n", mark, fmt.Sprintf(format, args...))
	}

	configPath := app.ConfigPath
	if configPath == "" {
		configPath, _ = config.GetDefaultConfigPath()
	}
	fmt.Fprintf(app.Out, "Config file: %s\n\n", configPath)

	if err := cfg.Validate(); err != nil {
		check(false, "Configuration invalid:\n%v", err)
	} else {
		check(true, "Configuration valid")
	}

	if info, err := os.Stat(cfg.Corpus.Root); err != nil || !info.IsDir() {
		check(false, "Corpus root: %s (not a directory)", cfg.Corpus.Root)
	} else {
		refs, err := app.Loader().List(corpus.Filter{})
		if err != nil {
			check(false, "Corpus root: %s (%v)", cfg.Corpus.Root, err)
		} else {
			check(true, "Corpus root: %s (%d examples)", cfg.Corpus.Root, len(refs))
		}
	}

	executor, err := app.Executor()
	if err != nil {
		check(false, "Engine %s: %v", cfg.Engine.Kind, err)
	} else {
		if err := executor.Ping(ctx); err != nil {
			check(false, "Engine %s: %v", cfg.Engine.Kind, err)
		} else {
			check(true, "Engine %s reachable", cfg.Engine.Kind)
		}
		executor.Close()
	}

	switch {
	case !cfg.LLM.Enabled:
		fmt.Fprintf(app.Out, "%s LLM analysis disabled\n", yellow("!"))
	case cfg.APIKey() == "":
		fmt.Fprintf(app.Out, "%s LLM key missing: set %s (analyses will be degraded)\n", yellow("!"), cfg.LLM.APIKeyEnv)
	default:
		check(true, "LLM model %s (key from %s)", cfg.LLM.Model, cfg.LLM.APIKeyEnv)
	}

	if cfg.Cache.Backend == config.CacheSQLite {
		db := app.Storage()
		if db.Enabled() {
			check(true, "Report cache: sqlite")
		} else {
			fmt.Fprintf(app.Out, "%s Report cache: sqlite unavailable, falling back to memory\n", yellow("!"))
		}
		db.Close()
	} else {
		check(true, "Report cache: %s", cfg.Cache.Backend)
	}

	if failed {
		return errVerifyFailed
	}
	return nil
}
