package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfigDirUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("unexpected dir %s", got)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, _ := New(t.TempDir())
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", cfg.Settings)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, `
backend: sqlite
sqlite:
  path: boards.db
comments:
  redis_url: redis://localhost:6379/0
mock:
  latency: 50ms
  failure_rate: 0
confirm_timeout: 3s
log:
  level: debug
`)
	cfg, _ := New(dir)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Settings
	if s.Backend != BackendSQLite {
		t.Errorf("backend = %s", s.Backend)
	}
	if cfg.SQLitePath() != filepath.Join(dir, "boards.db") {
		t.Errorf("sqlite path = %s", cfg.SQLitePath())
	}
	if s.Comments.RedisURL != "redis://localhost:6379/0" || s.Comments.ChannelPrefix != "taskboard:comments:" {
		t.Errorf("comments = %+v", s.Comments)
	}
	if s.Mock.Latency != 50*time.Millisecond || s.Mock.FailureRate != 0 {
		t.Errorf("mock = %+v", s.Mock)
	}
	if s.Mock.FailureLatency != time.Second {
		t.Errorf("expected unset keys to keep defaults, got %s", s.Mock.FailureLatency)
	}
	if s.ConfirmTimeout != 3*time.Second || s.Log.Level != "debug" {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"backend":  "backend: trello\n",
		"rate":     "mock:\n  failure_rate: 1.5\n",
		"duration": "confirm_timeout: soon\n",
		"negative": "toast_duration: -1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeSettings(t, dir, body)
			cfg, _ := New(dir)
			err := cfg.Load()
			if err == nil || !strings.Contains(err.Error(), SettingsFile) {
				t.Errorf("expected error mentioning %s, got %v", SettingsFile, err)
			}
			if cfg.Settings != DefaultSettings() {
				t.Error("settings changed on error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg, _ := New("/cfg")
	if cfg.TokenPath() != "/cfg/token.json" || cfg.OAuthClientPath() != "/cfg/oauth_client.json" {
		t.Errorf("unexpected oauth paths %s %s", cfg.TokenPath(), cfg.OAuthClientPath())
	}
	if cfg.LogPath() != "/cfg/taskboard.log" {
		t.Errorf("unexpected log path %s", cfg.LogPath())
	}
	cfg.Settings.SQLite.Path = "/var/lib/board.db"
	if cfg.SQLitePath() != "/var/lib/board.db" {
		t.Errorf("expected absolute path to be kept, got %s", cfg.SQLitePath())
	}
}

func TestTokenLifecycle(t *testing.T) {
	cfg, _ := New(filepath.Join(t.TempDir(), "nested"))
	if cfg.HasToken() {
		t.Fatal("unexpected token")
	}
	if err := cfg.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.TokenPath(), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if !cfg.HasToken() {
		t.Fatal("expected token")
	}
	if err := cfg.RemoveToken(); err != nil {
		t.Fatal(err)
	}
	if cfg.HasToken() {
		t.Error("expected token to be removed")
	}
}
