package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Viewer.AssetPath == "" {
		return fmt.Errorf("viewer.asset_path is required")
	}
	if c.Session.MinimumViewTime < 0 {
		return fmt.Errorf("session.minimum_view_time must not be negative")
	}
	for name, p := range map[string]float32{
		"profiles.compact.target_size":  c.Profiles.Compact.TargetSize,
		"profiles.standard.target_size": c.Profiles.Standard.TargetSize,
	} {
		if p <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	switch c.Graphics.Profile {
	case "", "compact", "standard":
	default:
		return fmt.Errorf("graphics.profile %q: want compact or standard", c.Graphics.Profile)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "ARViewer")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ARViewer")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "arviewer")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "arviewer")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
// Profiles not mentioned in the file keep their defaults.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
