package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AppName names the per-user config directory.
const AppName = "vellum"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	History HistoryConfig     `yaml:"history"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.History.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile switches logging to JSON lines appended to this file. When
	// empty, logs go to stderr as text.
	LogFile      string        `yaml:"log_file"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Millisecond), validation.Max(time.Second)),
	)
}

// JournalConfig holds the journal directory and editing behaviour.
type JournalConfig struct {
	// Path is the journal directory. The command-line argument overrides it.
	Path   string `yaml:"path"`
	Editor string `yaml:"editor"`
	// Watch refreshes the list when files change on disk.
	Watch bool `yaml:"watch"`
	// RemoveScratch deletes the plaintext working copy after every edit.
	RemoveScratch bool `yaml:"remove_scratch"`
}

// HistoryConfig holds the edit-history database configuration.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// DefaultConfigPath returns <user config dir>/vellum/config.yaml, or "" when
// the platform has no user config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	cfg := &Config{
		App: ApplicationConfig{
			LogLevel:     slog.LevelInfo,
			PollInterval: 16 * time.Millisecond,
		},
		Journal: JournalConfig{
			Editor: os.Getenv("EDITOR"),
			Watch:  true,
		},
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.History = HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dir, AppName, "history.db"),
		}
	}
	return cfg
}
