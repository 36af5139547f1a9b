package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvEngineDSN     = "QUEST_EVAL_ENGINE_DSN"
	EnvLLMModel      = "QUEST_EVAL_LLM_MODEL"
	EnvLLMBaseURL    = "QUEST_EVAL_LLM_BASE_URL"
	EnvMaxConcurrent = "QUEST_EVAL_MAX_CONCURRENT"
	EnvCorpusRoot    = "QUEST_EVAL_CORPUS_ROOT"
)

// Load reads the configuration from path, or from the default path when path
// is empty. A missing file at the default path yields the defaults; a missing
// file at an explicit path is a ConfigNotFoundError.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := GetDefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		var notFound *ConfigNotFoundError
		if !explicit && errors.As(err, &notFound) {
			cfg = NewConfig()
			if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
				return nil, err
			}
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads config with enhanced error handling
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				Path: path,
				Hint: "Run 'quest-eval setup' to create configuration",
			}
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Restore from .bak file if available",
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := NewConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEngineDSN); ok && v != "" {
		c.Engine.DSN = v
	}
	if v, ok := lookup(EnvLLMModel); ok && v != "" {
		c.LLM.Model = v
	}
	if v, ok := lookup(EnvLLMBaseURL); ok && v != "" {
		c.LLM.BaseURL = v
	}
	if v, ok := lookup(EnvCorpusRoot); ok && v != "" {
		c.Corpus.Root = v
	}
	if v, ok := lookup(EnvMaxConcurrent); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: EnvMaxConcurrent, Message: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Evaluation.MaxConcurrent = n
	}
	return nil
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default:
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails reports the current file mode
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
