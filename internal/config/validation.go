package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Validate checks the configuration for values no component can run with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Corpus.Root == "" {
		add("corpus.root", "must not be empty")
	}

	switch c.Engine.Kind {
	case EngineSQLite:
	case EnginePostgres:
		if c.Engine.DSN == "" {
			add("engine.dsn", "required when engine.kind is postgres (or set %s)", EnvEngineDSN)
		}
	case EngineProcess:
		if c.Engine.Command == "" {
			add("engine.command", "required when engine.kind is process")
		}
	default:
		add("engine.kind", "unknown engine %q (expected sqlite, postgres or process)", c.Engine.Kind)
	}
	if c.Engine.TimeoutSeconds < 0 {
		add("engine.timeout_seconds", "must not be negative")
	}

	if c.LLM.TimeoutSeconds < 0 {
		add("llm.timeout_seconds", "must not be negative")
	}
	if c.LLM.Enabled && c.LLM.Model == "" {
		add("llm.model", "required when llm.enabled is true")
	}
	for name, call := range map[string]CallConfig{"llm.intent": c.LLM.Intent, "llm.assessment": c.LLM.Assessment} {
		if call.Temperature < 0 || call.Temperature > 2 {
			add(name+".temperature", "must be between 0 and 2")
		}
		if call.MaxTokens < 0 {
			add(name+".max_tokens", "must not be negative")
		}
	}

	if c.Evaluation.OutputDir == "" {
		add("evaluation.output_dir", "must not be empty")
	}

	switch c.Cache.Backend {
	case CacheSQLite, CacheMemory:
	default:
		add("cache.backend", "unknown backend %q (expected sqlite or memory)", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds < 0 {
		add("cache.ttl_seconds", "must not be negative")
	}
	if c.Cache.MaxEntries < 0 {
		add("cache.max_entries", "must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "%v", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		add("logging.format", "unknown format %q (expected console or json)", c.Logging.Format)
	}

	return errors.Join(errs...)
}
