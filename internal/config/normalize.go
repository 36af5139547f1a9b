package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	minConcurrent = 1
	maxConcurrent = 32
)

// Normalize expands home-relative paths, canonicalizes extensions and clamps
// the worker count.
func (c *Config) Normalize() {
	c.Corpus.Root = ExpandHome(c.Corpus.Root)
	c.Evaluation.OutputDir = ExpandHome(c.Evaluation.OutputDir)
	c.Report.OutputDir = ExpandHome(c.Report.OutputDir)
	c.Cache.DBPath = ExpandHome(c.Cache.DBPath)

	exts := make([]string, 0, len(c.Corpus.Extensions))
	for _, ext := range c.Corpus.Extensions {
		ext = NormalizeExtension(ext)
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	c.Corpus.Extensions = exts

	switch {
	case c.Evaluation.MaxConcurrent < minConcurrent:
		c.Evaluation.MaxConcurrent = minConcurrent
	case c.Evaluation.MaxConcurrent > maxConcurrent:
		c.Evaluation.MaxConcurrent = maxConcurrent
	}

	c.Engine.Kind = strings.ToLower(strings.TrimSpace(c.Engine.Kind))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// NormalizeExtension lowercases ext and ensures a leading dot.
//
//   - "SQL"  → ".sql"
//   - ".Sql" → ".sql"
//   - " "    → ""
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
