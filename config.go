package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every command.
type Config struct {
	TargetWidth int           `yaml:"target_width"`
	Timeout     time.Duration `yaml:"timeout"`
	Backend     string        `yaml:"backend"`
	LogLevel    string        `yaml:"log_level"`
	Listen      string        `yaml:"listen,omitempty"`
	Advertise   bool          `yaml:"advertise,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{
		TargetWidth: DefaultTargetWidth,
		Timeout:     DefaultCaptureTimeout,
		Backend:     backendAuto,
		LogLevel:    "info",
	}
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.TargetWidth <= 0 {
		return fmt.Errorf("target_width must be positive, got %d", c.TargetWidth)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.Backend {
	case backendAuto, backendNative, backendPortal, backendFFmpeg:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Advertise && c.Listen == "" {
		return errors.New("advertise requires listen")
	}
	return nil
}

// configDir overrides the default config directory for testing and --config-dir.
// When empty, the user's home directory is used.
var configDir string

func configPath() (string, error) {
	if configDir != "" {
		return filepath.Join(configDir, "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".screencap", "config.yaml"), nil
}

// LoadConfig reads the config file over the defaults. A missing file yields
// the defaults with no error.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path, err := configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig persists cfg. Creates the config directory with 0700 if needed.
func SaveConfig(cfg Config) (string, error) {
	path, err := configPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0600)
}
