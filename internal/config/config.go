// Package config handles the XDG configuration directory, file paths and
// the optional config.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "taskboard"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// LogFile is where the interactive board writes its logs.
	LogFile = "taskboard.log"
)

// Backend names.
const (
	BackendMemory      = "memory"
	BackendSQLite      = "sqlite"
	BackendGoogleTasks = "googletasks"
)

// SQLiteSettings configures the sqlite backend.
type SQLiteSettings struct {
	// Path of the database file. Relative paths are resolved against the config dir.
	Path string `yaml:"path"`
}

// CommentSettings configures live comment delivery.
type CommentSettings struct {
	// RedisURL enables the Redis feed, e.g. redis://localhost:6379/0.
	RedisURL      string `yaml:"redis_url"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// MockSettings configures the memory backend.
type MockSettings struct {
	Latency             time.Duration `yaml:"latency"`
	FailureLatency      time.Duration `yaml:"failure_latency"`
	FailureRate         float64       `yaml:"failure_rate"`
	LiveCommentInterval time.Duration `yaml:"live_comment_interval"`
	Seed                uint64        `yaml:"seed"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `yaml:"level"`
	// File receives logs of the interactive board. Relative paths are resolved against the config dir.
	File string `yaml:"file"`
}

// Settings models config.yaml.
type Settings struct {
	Backend        string          `yaml:"backend"`
	SQLite         SQLiteSettings  `yaml:"sqlite"`
	Comments       CommentSettings `yaml:"comments"`
	Mock           MockSettings    `yaml:"mock"`
	ConfirmTimeout time.Duration   `yaml:"confirm_timeout"`
	ToastDuration  time.Duration   `yaml:"toast_duration"`
	Log            LogSettings     `yaml:"log"`
}

// DefaultSettings returns the settings used when config.yaml is absent.
func DefaultSettings() Settings {
	return Settings{
		Backend: BackendMemory,
		SQLite:  SQLiteSettings{Path: "taskboard.sqlite"},
		Comments: CommentSettings{
			ChannelPrefix: "taskboard:comments:",
		},
		Mock: MockSettings{
			Latency:             500 * time.Millisecond,
			FailureLatency:      time.Second,
			FailureRate:         0.1,
			LiveCommentInterval: 5 * time.Second,
		},
		ConfirmTimeout: 10 * time.Second,
		ToastDuration:  4 * time.Second,
		Log:            LogSettings{Level: "info", File: LogFile},
	}
}

// Validate checks settings loaded from disk.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendMemory, BackendSQLite, BackendGoogleTasks:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", s.Backend, BackendMemory, BackendSQLite, BackendGoogleTasks)
	}
	if s.Mock.FailureRate < 0 || s.Mock.FailureRate > 1 {
		return fmt.Errorf("mock.failure_rate must be between 0 and 1, got %v", s.Mock.FailureRate)
	}
	if s.Mock.Latency < 0 || s.Mock.FailureLatency < 0 || s.Mock.LiveCommentInterval < 0 {
		return errors.New("mock durations must not be negative")
	}
	if s.ConfirmTimeout < 0 || s.ToastDuration < 0 {
		return errors.New("confirm_timeout and toast_duration must not be negative")
	}
	return nil
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings from config.yaml, or defaults.
	Settings Settings
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskboard or $HOME/.config/taskboard.
// Settings start as DefaultSettings; call Load to read config.yaml.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, Settings: DefaultSettings()}, nil
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

// Load reads config.yaml from the config directory over the defaults.
// A missing file is not an error.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.SettingsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", SettingsFile, err)
	}
	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parse %s: %w", SettingsFile, err)
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%s: %w", SettingsFile, err)
	}
	c.Settings = settings
	return nil
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SQLitePath returns the sqlite database path.
func (c *Config) SQLitePath() string {
	return c.resolve(c.Settings.SQLite.Path)
}

// LogPath returns the log file of the interactive board.
func (c *Config) LogPath() string {
	return c.resolve(c.Settings.Log.File)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
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
