// Package config handles the XDG configuration directory, the persisted
// token file and the optional settings file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tdsync"

	// TokenFile is the stored access token filename.
	TokenFile = "token.json"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"
)

// Settings are the user-tunable values read from config.yaml.
// Every field has a default; a missing or unreadable file is not an error.
type Settings struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	DebounceMs int    `yaml:"debounce_ms,omitempty"`
	PageSize   int    `yaml:"page_size,omitempty"`
	TimeoutS   int    `yaml:"timeout_s,omitempty"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:    "http://localhost:8000/api/v1",
		DebounceMs: 500,
		PageSize:   100,
		TimeoutS:   5,
	}
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Settings are the loaded (or default) settings.
	Settings Settings

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a Config with the default or specified config directory and
// loads settings from config.yaml if present.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir, Settings: DefaultSettings()}
	cfg.loadSettings()
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// loadSettings overlays config.yaml onto the defaults.
// A missing or invalid file leaves the defaults in place.
func (c *Config) loadSettings() {
	data, err := os.ReadFile(c.SettingsPath())
	if err != nil {
		return
	}
	s := c.Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultSettings().BaseURL
	}
	if s.DebounceMs <= 0 {
		s.DebounceMs = DefaultSettings().DebounceMs
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultSettings().PageSize
	}
	if s.TimeoutS <= 0 {
		s.TimeoutS = DefaultSettings().TimeoutS
	}
	c.Settings = s
}

// SettingsPath returns the path to the settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// Debounce returns the search debounce quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Settings.DebounceMs) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Settings.TimeoutS) * time.Second
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
