// Package config holds the persisted user preferences: active model size,
// microphone device and a couple of behavior toggles. Everything else is
// flag-driven and per-process.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk preferences record.
type Config struct {
	// Model is the active model size id ("tiny", "base", "small", "medium",
	// "large"). Empty means no model has been selected yet.
	Model string `yaml:"model"`
	// Device is the preferred capture device name. Empty means system default.
	Device string `yaml:"device"`
	// AutoPaste synthesizes a paste keystroke after the clipboard write.
	AutoPaste bool `yaml:"auto_paste"`
	// MaxRecordSeconds bounds a single recording; capture stops automatically
	// once reached. Zero picks the default.
	MaxRecordSeconds int `yaml:"max_record_seconds"`
}

const defaultMaxRecordSeconds = 120

// DefaultDir returns the user config directory for sotto.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sotto")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sotto")
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model:            "",
		Device:           "",
		AutoPaste:        false,
		MaxRecordSeconds: defaultMaxRecordSeconds,
	}
}

// Load reads the preferences file at path. A missing file is not an error:
// defaults are returned so first run works without setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.MaxRecordSeconds <= 0 {
		cfg.MaxRecordSeconds = defaultMaxRecordSeconds
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the preferences to path, creating the directory if needed.
// The write is atomic (tmp file + rename) so a crash never truncates the
// existing record.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing config: %w", err)
	}
	return nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Model {
	case "", "tiny", "base", "small", "medium", "large":
	default:
		return fmt.Errorf("model must be tiny, base, small, medium or large, got %q", c.Model)
	}
	if c.MaxRecordSeconds <= 0 {
		return fmt.Errorf("max_record_seconds must be > 0, got %d", c.MaxRecordSeconds)
	}
	return nil
}
