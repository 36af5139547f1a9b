package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown engine", func(c *Config) { c.Engine.Kind = "oracle" }, "engine.kind"},
		{"postgres without dsn", func(c *Config) { c.Engine.Kind = EnginePostgres }, "engine.dsn"},
		{"postgres with dsn", func(c *Config) { c.Engine.Kind = EnginePostgres; c.Engine.DSN = "postgres://x" }, ""},
		{"process without command", func(c *Config) { c.Engine.Kind = EngineProcess }, "engine.command"},
		{"negative engine timeout", func(c *Config) { c.Engine.TimeoutSeconds = -1 }, "engine.timeout_seconds"},
		{"negative llm timeout", func(c *Config) { c.LLM.TimeoutSeconds = -5 }, "llm.timeout_seconds"},
		{"enabled llm without model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"disabled llm without model", func(c *Config) { c.LLM.Enabled = false; c.LLM.Model = "" }, ""},
		{"temperature out of range", func(c *Config) { c.LLM.Intent.Temperature = 3 }, "llm.intent.temperature"},
		{"negative max tokens", func(c *Config) { c.LLM.Assessment.MaxTokens = -1 }, "llm.assessment.max_tokens"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"negative ttl", func(c *Config) { c.Cache.TTLSeconds = -1 }, "cache.ttl_seconds"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty output dir", func(c *Config) { c.Evaluation.OutputDir = "" }, "evaluation.output_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error should name %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := NewConfig()
	cfg.Engine.Kind = "nope"
	cfg.Cache.Backend = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "engine.kind") || !strings.Contains(msg, "cache.backend") {
		t.Errorf("expected both fields in %q", msg)
	}
}
