/*
Package config handles loading, validating and saving quest-eval configuration.

Configuration is stored in ~/.quest-eval.yaml. Every key is optional; missing
keys take the defaults shown below, and a handful of environment variables
override the file.

Schema:

	corpus:
	  root: ./quests
	  extensions: [.sql]
	  comment_prefixes: ["--"]
	engine:
	  kind: sqlite            # sqlite | postgres | process
	  dsn: ""                 # required for postgres
	  command: ""             # required for process, e.g. psql
	  args: []
	  timeout_seconds: 30
	llm:
	  enabled: true
	  base_url: ""
	  api_key_env: OPENAI_API_KEY
	  model: gpt-4o-mini
	  timeout_seconds: 30
	  repair_json: false
	  intent: {temperature: 0.3, max_tokens: 800}
	  assessment: {temperature: 0.3, max_tokens: 1500}
	evaluation:
	  max_concurrent: 4
	  output_dir: ./evaluations
	cache:
	  ttl_seconds: 300
	  backend: sqlite         # sqlite | memory
	  max_entries: 128
	  db_path: ~/.quest-eval/cache.db
	report:
	  output_dir: ./reports
	logging:
	  level: info
	  format: console         # console | json
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the root configuration structure.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Engine     EngineConfig     `yaml:"engine"`
	LLM        LLMConfig        `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Cache      CacheConfig      `yaml:"cache"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CorpusConfig locates the example tree.
type CorpusConfig struct {
	Root            string   `yaml:"root"`
	Extensions      []string `yaml:"extensions,omitempty"`
	CommentPrefixes []string `yaml:"comment_prefixes,omitempty"`
}

// EngineConfig selects the execution environment for examples.
type EngineConfig struct {
	// Kind is sqlite, postgres or process.
	Kind string `yaml:"kind"`

	// DSN is the Postgres connection string.
	DSN string `yaml:"dsn,omitempty"`

	// Command and Args run each example through an external program,
	// with the source on stdin.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`

	Env            map[string]string `yaml:"env,omitempty"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

// CallConfig tunes one kind of completion request.
type CallConfig struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	Enabled        bool       `yaml:"enabled"`
	BaseURL        string     `yaml:"base_url,omitempty"`
	APIKeyEnv      string     `yaml:"api_key_env"`
	Model          string     `yaml:"model"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	RepairJSON     bool       `yaml:"repair_json"`
	Intent         CallConfig `yaml:"intent"`
	Assessment     CallConfig `yaml:"assessment"`
}

// EvaluationConfig controls the worker pool and artifact location.
type EvaluationConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent"`
	OutputDir     string `yaml:"output_dir"`
}

// CacheConfig controls aggregate report caching.
type CacheConfig struct {
	TTLSeconds int    `yaml:"ttl_seconds"`
	Backend    string `yaml:"backend"`
	MaxEntries int    `yaml:"max_entries"`
	DBPath     string `yaml:"db_path,omitempty"`
}

// ReportConfig controls where rendered reports are written.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineProcess  = "process"

	CacheSQLite = "sqlite"
	CacheMemory = "memory"
)

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Root:            "./quests",
			Extensions:      []string{".sql"},
			CommentPrefixes: []string{"--"},
		},
		Engine: EngineConfig{
			Kind:           EngineSQLite,
			TimeoutSeconds: 30,
		},
		LLM: LLMConfig{
			Enabled:        true,
			APIKeyEnv:      "OPENAI_API_KEY",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
			Intent:         CallConfig{Temperature: 0.3, MaxTokens: 800},
			Assessment:     CallConfig{Temperature: 0.3, MaxTokens: 1500},
		},
		Evaluation: EvaluationConfig{
			MaxConcurrent: 4,
			OutputDir:     "./evaluations",
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
			Backend:    CacheSQLite,
			MaxEntries: 128,
		},
		Report: ReportConfig{
			OutputDir: "./reports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.quest-eval.yaml
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".quest-eval.yaml"), nil
}

// APIKey returns the completion service key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}

// LLMAvailable reports whether LLM analysis is enabled and has a key.
func (c *Config) LLMAvailable() bool {
	return c.LLM.Enabled && c.APIKey() != ""
}

func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
