// Package config resolves where the store keeps its files and which
// brain starts active. Settings come from a YAML file in the base
// directory, overridable by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvHome overrides the base directory.
	EnvHome = "BRAINSTORE_HOME"

	// EnvBrain overrides the active brain.
	EnvBrain = "BRAINSTORE_BRAIN"

	configFile = "config.yaml"
)

// Config holds global settings.
type Config struct {
	// BaseDir is the root directory for brain storage.
	BaseDir string `yaml:"base_dir"`

	// ActiveBrain is the brain operations run against by default.
	ActiveBrain string `yaml:"active_brain"`

	// Audit enables the on-disk event log.
	Audit bool `yaml:"audit"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:     defaultBaseDir(),
		ActiveBrain: "main",
	}
}

func defaultBaseDir() string {
	if envDir := os.Getenv(EnvHome); envDir != "" {
		return envDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".brainstore"
	}
	return filepath.Join(homeDir, ".brainstore")
}

// Load reads the config file from the base directory, if present, and
// applies environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(cfg.BaseDir, configFile))
	if err == nil {
		// base_dir in the file cannot move the file out from under
		// itself; only the environment relocates storage.
		fileBase := cfg.BaseDir
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file: %w", err)
		}
		if os.Getenv(EnvHome) != "" {
			cfg.BaseDir = fileBase
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if envBrain := os.Getenv(EnvBrain); envBrain != "" {
		cfg.ActiveBrain = envBrain
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the config file into the base directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.BaseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.BaseDir, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.BaseDir, configFile), data, 0o640)
}

// Validate checks the configuration and absolutizes the base directory.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}
	absPath, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	c.BaseDir = absPath

	if c.ActiveBrain == "" {
		c.ActiveBrain = "main"
	}
	return nil
}
