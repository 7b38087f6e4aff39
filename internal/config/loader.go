package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectConfigFile is the name of the project-level config file
const ProjectConfigFile = "blueprint.yaml"

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. The file at path, or blueprint.yaml in dir or one of its parents
// 3. overrides (typically command-line flags)
//
// An explicit path that cannot be read is an error; a missing project file
// is not.
func (l *Loader) Load(path, dir string, overrides *Config) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		path = l.findProjectConfig(dir)
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", path))
		config = fileConfig
		base := filepath.Dir(path)
		for _, p := range []*string{&config.Input, &config.Output} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(base, *p)
			}
		}
	} else {
		l.logger.Debug("No project config found")
	}

	config.Merge(overrides)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findProjectConfig searches for blueprint.yaml in dir and its parents
func (l *Loader) findProjectConfig(dir string) string {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
