// Package config provides configuration loading and management for blueprint builds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
	"github.com/FocuswithJustin/blueprint/internal/logging"
)

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// DefaultInclude matches blueprint documents anywhere under the input directory.
const DefaultInclude = "**/*.bp"

// Config represents the complete build configuration
type Config struct {
	// Input is the directory searched for documents
	Input string `yaml:"input"`
	// Include lists doublestar patterns, relative to Input, of documents to read
	Include []string `yaml:"include"`
	// Exclude lists doublestar patterns of documents to skip
	Exclude []string `yaml:"exclude,omitempty"`
	// Output is the directory the site is written to
	Output string `yaml:"output"`
	// Theme selects the stylesheet set ("dark" or "light")
	Theme string `yaml:"theme"`
	// Workers bounds parallel parsing (default: number of CPUs)
	Workers int `yaml:"workers"`
	// DocumentPages keeps unowned sections on a page named after their document
	DocumentPages bool `yaml:"document_pages"`
	// Archive, when set, is the path of a .tar.xz bundle of the site
	Archive string `yaml:"archive,omitempty"`
	// TraceDB, when set, is the path of a SQLite traceability database
	TraceDB string `yaml:"trace_db,omitempty"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is json or text
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Input:   ".",
		Include: []string{DefaultInclude},
		Output:  "site",
		Theme:   ThemeDark,
		Workers: runtime.NumCPU(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Input == "" {
		return apperrors.NewValidation("input", "is required")
	}
	if c.Output == "" {
		return apperrors.NewValidation("output", "is required")
	}
	if len(c.Include) == 0 {
		return apperrors.NewValidation("include", "needs at least one pattern")
	}
	if c.Theme != ThemeDark && c.Theme != ThemeLight {
		return &apperrors.ValidationError{
			Field:   "theme",
			Value:   c.Theme,
			Message: fmt.Sprintf("must be %q or %q", ThemeDark, ThemeLight),
		}
	}
	if c.Workers < 1 {
		return apperrors.NewValidation("workers", "must be at least 1")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &apperrors.ValidationError{Field: "log.level", Value: c.Log.Level, Message: err.Error()}
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return &apperrors.ValidationError{Field: "log.format", Value: c.Log.Format, Message: err.Error()}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIO("read config", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewIO("create config directory", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewIO("write config", path, err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values; booleans can only be switched on)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Input != "" {
		c.Input = other.Input
	}
	if len(other.Include) > 0 {
		c.Include = append([]string(nil), other.Include...)
	}
	if len(other.Exclude) > 0 {
		c.Exclude = append([]string(nil), other.Exclude...)
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.Theme != "" {
		c.Theme = other.Theme
	}
	if other.Workers != 0 {
		c.Workers = other.Workers
	}
	if other.DocumentPages {
		c.DocumentPages = true
	}
	if other.Archive != "" {
		c.Archive = other.Archive
	}
	if other.TraceDB != "" {
		c.TraceDB = other.TraceDB
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// InitLogging configures the global logger from the log section.
func (c *Config) InitLogging() error {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}
