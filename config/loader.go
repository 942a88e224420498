package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "ensemble.yaml"
	// UserConfigDir is the directory for user-level config, relative to home
	UserConfigDir = ".config/ensemble"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader builds the effective configuration from layered files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// layer is one configuration source. Optional layers that do not exist are
// skipped; a broken optional layer is logged and skipped.
type layer struct {
	name     string
	path     string
	required bool
}

// Load applies, in increasing precedence, the defaults, the user config
// (~/.config/ensemble/config.yaml), the nearest ensemble.yaml in the working
// directory or its parents, and path when non-empty. The result is
// validated.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	layers := []layer{
		{name: "user", path: l.UserConfigPath()},
		{name: "project", path: findUpward(ProjectConfigFile)},
	}
	if path != "" {
		layers = append(layers, layer{name: "explicit", path: path, required: true})
	}

	for _, ly := range layers {
		if ly.path == "" {
			l.logger.Debug("Config layer not present", "layer", ly.name)
			continue
		}
		next, err := LoadFromFile(ly.path)
		switch {
		case err == nil:
			l.logger.Debug("Loaded config layer", "layer", ly.name, "path", ly.path)
			cfg.Merge(next)
		case ly.required:
			return nil, err
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Debug("Config layer not present", "layer", ly.name, "path", ly.path)
		default:
			l.logger.Warn("Skipping unreadable config layer", "layer", ly.name, "path", ly.path, "error", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitUserConfig writes the default configuration to the user config file.
// An existing file is kept unless force is set. It returns the file path and
// whether the file was written.
func (l *Loader) InitUserConfig(force bool) (string, bool, error) {
	path := l.UserConfigPath()
	if path == "" {
		return "", false, fmt.Errorf("cannot determine home directory")
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			l.logger.Debug("User config already exists", "path", path)
			return path, false, nil
		}
	}

	if err := DefaultConfig().SaveToFile(path); err != nil {
		return path, false, err
	}
	l.logger.Info("Wrote default user config", "path", path)
	return path, true, nil
}

// UserConfigPath returns the user config file path, or "" when the home
// directory is unknown.
func (l *Loader) UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findUpward returns the first name found in the working directory or one of
// its parents, or "".
func findUpward(name string) string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
