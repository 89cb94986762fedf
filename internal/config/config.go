// Package config loads per-project settings from .dedupe/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the dedupe directory.
const FileName = "config.yaml"

// Config holds project settings. Zero-valued fields fall back to Default.
type Config struct {
	Separator   string `yaml:"separator"`
	StoreFile   string `yaml:"store_file"`
	LockTimeout string `yaml:"lock_timeout"`
	// Format is toon, pretty or json. Empty selects by TTY.
	Format string `yaml:"format,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Separator:   ",",
		StoreFile:   "data.txt",
		LockTimeout: "5s",
	}
}

// Load reads dir/config.yaml. A missing file yields Default.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to dir/config.yaml.
func Save(dir string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", FileName, err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", FileName, err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.StoreFile == "" {
		c.StoreFile = d.StoreFile
	}
	if c.LockTimeout == "" {
		c.LockTimeout = d.LockTimeout
	}
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Separator == "" {
		return fmt.Errorf("invalid config: separator must not be empty")
	}
	if c.StoreFile != filepath.Base(c.StoreFile) || strings.HasPrefix(c.StoreFile, ".") {
		return fmt.Errorf("invalid config: store_file must be a plain file name, got %q", c.StoreFile)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	switch c.Format {
	case "", "toon", "pretty", "json":
	default:
		return fmt.Errorf("invalid config: unknown format %q", c.Format)
	}
	return nil
}

// Timeout parses LockTimeout.
func (c Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid config: lock_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid config: lock_timeout must be positive")
	}
	return d, nil
}
