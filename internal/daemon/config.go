// Package daemon holds the voucherdesk configuration shared by the CLI and
// the local dashboard server.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Clipboard targets for mark-sold.
const (
	ClipboardSystem = "system"
	ClipboardMemory = "memory"
)

// Pagination authorities. Exactly one is in force per deployment.
const (
	PaginationClient = "client"
	PaginationServer = "server"
)

// Config is the root of config.toml.
type Config struct {
	API       APIConfig       `toml:"api"`
	Session   SessionConfig   `toml:"session"`
	UI        UIConfig        `toml:"ui"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Log       LogConfig       `toml:"log"`
}

// APIConfig points the client at the voucher backend.
type APIConfig struct {
	BaseURL    string `toml:"base_url"`
	Timeout    string `toml:"timeout"`
	Pagination string `toml:"pagination"` // "client" or "server"
}

// SessionConfig locates durable local state.
type SessionConfig struct {
	DataDir string `toml:"data_dir"`
}

// UIConfig tunes the projection.
type UIConfig struct {
	NotificationTTL string `toml:"notification_ttl"`
	DateLayout      string `toml:"date_layout"`
	Clipboard       string `toml:"clipboard"` // "system" or "memory"
}

// DashboardConfig controls `voucherdesk serve`.
type DashboardConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// LogConfig controls logrus output and optional file rotation.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "text" or "json"
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000/api",
			Timeout:    "30s",
			Pagination: PaginationClient,
		},
		UI: UIConfig{
			NotificationTTL: "5s",
			DateLayout:      "2006-01-02",
			Clipboard:       ClipboardSystem,
		},
		Dashboard: DashboardConfig{
			Host:    "127.0.0.1",
			Port:    8765,
			Metrics: true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Home returns VOUCHERDESK_HOME or ~/.voucherdesk.
func Home() string {
	if env := os.Getenv("VOUCHERDESK_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".voucherdesk")
}

// ConfigPath is the default location of config.toml.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if env := os.Getenv("VOUCHERDESK_API_URL"); env != "" {
		cfg.API.BaseURL = env
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	switch c.API.Pagination {
	case PaginationClient, PaginationServer:
	default:
		return fmt.Errorf("api.pagination must be %q or %q, got %q", PaginationClient, PaginationServer, c.API.Pagination)
	}
	switch c.UI.Clipboard {
	case ClipboardSystem, ClipboardMemory:
	default:
		return fmt.Errorf("ui.clipboard must be %q or %q, got %q", ClipboardSystem, ClipboardMemory, c.UI.Clipboard)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	return nil
}

// DataDir is where the sqlite session database lives.
func (c Config) DataDir() string {
	if c.Session.DataDir != "" {
		return c.Session.DataDir
	}
	return Home()
}

// RequestTimeout parses api.timeout, falling back to 30s.
func (c Config) RequestTimeout() time.Duration {
	return parseDuration(c.API.Timeout, 30*time.Second)
}

// NotificationTTL parses ui.notification_ttl, falling back to 5s.
func (c Config) NotificationTTL() time.Duration {
	return parseDuration(c.UI.NotificationTTL, 5*time.Second)
}

// DashboardAddr is host:port for the local server.
func (c Config) DashboardAddr() string {
	return fmt.Sprintf("%s:%d", c.Dashboard.Host, c.Dashboard.Port)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
