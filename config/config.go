// Package config provides configuration loading and management for the
// ensemble tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	NATS      NATSConfig      `yaml:"nats"`
	Workflows WorkflowsConfig `yaml:"workflows"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Listen is the address for the /metrics endpoint (empty = disabled)
	Listen string `yaml:"listen"`
}

// NATSConfig configures hook event publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty = no publishing)
	URL string `yaml:"url"`
	// SubjectPrefix is prepended to the lifecycle phase in published subjects
	SubjectPrefix string `yaml:"subject_prefix"`
}

// WorkflowsConfig configures the workflow catalog and interpreter
type WorkflowsConfig struct {
	// Directories are scanned for workflow files at startup
	Directories []string `yaml:"directories"`
	// Watch keeps the catalog in sync with Directories while serving
	Watch bool `yaml:"watch"`
	// Shell runs workflow files (default: /bin/sh)
	Shell string `yaml:"shell"`
	// DebounceDelay is how long the watcher waits for more changes
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Listen: "", // Disabled
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "ensemble.hook",
		},
		Workflows: WorkflowsConfig{
			Directories:   nil,
			Watch:         false,
			Shell:         "/bin/sh",
			DebounceDelay: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Workflows.Shell == "" {
		return fmt.Errorf("workflows.shell is required")
	}
	if c.Workflows.DebounceDelay < 0 {
		return fmt.Errorf("workflows.debounce_delay must not be negative")
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix is required when nats.url is set")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(ExpandEnvWithDefaults(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}

	// Metrics
	if other.Metrics.Listen != "" {
		c.Metrics.Listen = other.Metrics.Listen
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	// Workflows
	if len(other.Workflows.Directories) > 0 {
		c.Workflows.Directories = other.Workflows.Directories
	}
	if other.Workflows.Watch {
		c.Workflows.Watch = true
	}
	if other.Workflows.Shell != "" {
		c.Workflows.Shell = other.Workflows.Shell
	}
	if other.Workflows.DebounceDelay != 0 {
		c.Workflows.DebounceDelay = other.Workflows.DebounceDelay
	}
}
