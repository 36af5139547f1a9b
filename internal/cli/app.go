/*
Package cli implements the command-line interface for quest-eval.

Each command is implemented as a separate function that returns a *cobra.Command,
allowing for clean separation and easy testing. Commands share an App, which
holds the loaded configuration and logger and builds the pipeline components
from them.
*/
package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/config"
	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/engine"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/llm"
	"github.com/khanglvm/quest-eval/internal/logging"
	"github.com/khanglvm/quest-eval/internal/metrics"
	"github.com/khanglvm/quest-eval/internal/report"
	"github.com/khanglvm/quest-eval/internal/storage"
)

// App is the state shared by every command.
type App struct {
	// ConfigPath and Verbose are bound to the root's persistent flags.
	ConfigPath string
	Verbose    bool

	Out io.Writer
	Err io.Writer

	cfg    *config.Config
	logger *zap.Logger
}

// NewApp returns an App writing to stdout and stderr.
func NewApp() *App {
	return &App{Out: os.Stdout, Err: os.Stderr}
}

// Init loads the configuration and builds the logger. The root command calls
// it from PersistentPreRunE.
func (a *App) Init() error {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if a.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// Close flushes the logger.
func (a *App) Close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Config returns the loaded configuration, or the defaults before Init.
func (a *App) Config() *config.Config {
	if a.cfg == nil {
		a.cfg = config.NewConfig()
	}
	return a.cfg
}

// Logger returns the logger, or a no-op logger before Init.
func (a *App) Logger() *zap.Logger {
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a.logger
}

// ValidConfig returns the configuration after validating it.
func (a *App) ValidConfig() (*config.Config, error) {
	cfg := a.Config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error:\n%w\n\n💡 Run 'quest-eval verify' for details", err)
	}
	return cfg, nil
}

// Loader returns the example tree loader.
func (a *App) Loader() *corpus.Loader {
	cfg := a.Config()
	return corpus.NewLoader(cfg.Corpus.Root, corpus.Options{
		Extensions:      cfg.Corpus.Extensions,
		CommentPrefixes: cfg.Corpus.CommentPrefixes,
	})
}

// Records returns the evaluation artifact store.
func (a *App) Records() *evaluation.Store {
	return evaluation.NewStore(a.Config().Evaluation.OutputDir)
}

// Storage opens the SQLite database. Failures disable it rather than abort.
func (a *App) Storage() *storage.SQLiteStorage {
	db := storage.NewStorage(a.Config().Cache.DBPath, a.Logger())
	_ = db.Init()
	return db
}

// Executor builds the configured execution environment.
func (a *App) Executor() (engine.Executor, error) {
	cfg := a.Config()
	return engine.New(engine.Options{
		Kind:    engine.Kind(cfg.Engine.Kind),
		DSN:     cfg.Engine.DSN,
		Command: cfg.Engine.Command,
		Args:    cfg.Engine.Args,
		Env:     cfg.Engine.Env,
		Timeout: cfg.EngineTimeout(),
	}, a.Logger())
}

// Analyzer builds the LLM adapter. Without a key or with LLM analysis
// disabled it returns a disabled analyzer whose payloads are degraded.
func (a *App) Analyzer() *llm.Analyzer {
	cfg := a.Config()

	var client llm.Client
	if cfg.LLMAvailable() {
		c, err := llm.NewOpenAIClient(cfg.APIKey(), cfg.LLM.BaseURL)
		if err != nil {
			a.Logger().Warn("llm analysis disabled", zap.Error(err))
		} else {
			client = c
		}
	} else if cfg.LLM.Enabled {
		a.Logger().Warn("llm analysis disabled: no api key", zap.String("env", cfg.LLM.APIKeyEnv))
	}

	return llm.NewAnalyzer(client, llm.Options{
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLMTimeout(),
		RepairJSON: cfg.LLM.RepairJSON,
		Intent:     llm.CallOptions{Temperature: cfg.LLM.Intent.Temperature, MaxTokens: cfg.LLM.Intent.MaxTokens},
		Assessment: llm.CallOptions{Temperature: cfg.LLM.Assessment.Temperature, MaxTokens: cfg.LLM.Assessment.MaxTokens},
	}, a.Logger())
}

// ReportService builds the cached report service over the configured backend.
// db may be nil when the backend is memory.
func (a *App) ReportService(db storage.Storage, m *metrics.Metrics) (*report.Service, error) {
	cfg := a.Config()

	var store report.Store
	switch {
	case cfg.Cache.Backend == config.CacheSQLite && db != nil:
		store = report.NewSQLiteStore(db)
	default:
		mem, err := report.NewMemoryStore(cfg.Cache.MaxEntries)
		if err != nil {
			return nil, err
		}
		store = mem
	}

	agg := report.NewAggregator(a.Loader(), a.Records(), a.Logger())
	return report.NewService(agg.Compute, store, cfg.CacheTTL(), m, a.Logger()), nil
}
