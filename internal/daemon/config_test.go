package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "http://127.0.0.1:8000/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://127.0.0.1:8000/api")
	}
	if cfg.API.Pagination != PaginationClient {
		t.Errorf("API.Pagination = %q, want %q", cfg.API.Pagination, PaginationClient)
	}
	if cfg.Dashboard.Port != 8765 {
		t.Errorf("Dashboard.Port = %d, want %d", cfg.Dashboard.Port, 8765)
	}
	if !cfg.Dashboard.Metrics {
		t.Error("Dashboard.Metrics should be true by default")
	}
	if cfg.NotificationTTL() != 5*time.Second {
		t.Errorf("NotificationTTL() = %v, want 5s", cfg.NotificationTTL())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
	if cfg.UI.Clipboard != ClipboardSystem {
		t.Errorf("UI.Clipboard = %q, want %q", cfg.UI.Clipboard, ClipboardSystem)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("VOUCHERDESK_API_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Dashboard.Host != "127.0.0.1" {
		t.Errorf("Dashboard.Host = %q", cfg.Dashboard.Host)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("VOUCHERDESK_API_URL", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[api]
base_url = "https://vouchers.example.com/api"
pagination = "server"

[ui]
notification_ttl = "2s"

[dashboard]
port = 9000
metrics = false
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "https://vouchers.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Pagination != PaginationServer {
		t.Errorf("API.Pagination = %q, want server", cfg.API.Pagination)
	}
	if cfg.NotificationTTL() != 2*time.Second {
		t.Errorf("NotificationTTL() = %v, want 2s", cfg.NotificationTTL())
	}
	if cfg.DashboardAddr() != "127.0.0.1:9000" {
		t.Errorf("DashboardAddr() = %q", cfg.DashboardAddr())
	}
	if cfg.Dashboard.Metrics {
		t.Error("Dashboard.Metrics should be overridden to false")
	}
	// untouched sections keep defaults
	if cfg.API.Timeout != "30s" {
		t.Errorf("API.Timeout = %q, want default 30s", cfg.API.Timeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VOUCHERDESK_API_URL", "http://backend:8000/api")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "http://backend:8000/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestValidate_RejectsUnknownPagination(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Pagination = "both"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject pagination=both")
	}
}

func TestValidate_RejectsUnknownClipboard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.Clipboard = "primary"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject clipboard=primary")
	}
	cfg.UI.Clipboard = ClipboardMemory
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() rejected clipboard=memory: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"5s", 5 * time.Second},
		{"1m", time.Minute},
		{"", 7 * time.Second},
		{"garbage", 7 * time.Second},
		{"-1s", 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseDuration(tt.input, 7*time.Second)
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHome_Env(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VOUCHERDESK_HOME", dir)
	if Home() != dir {
		t.Errorf("Home() = %q, want %q", Home(), dir)
	}
	if ConfigPath() != filepath.Join(dir, "config.toml") {
		t.Errorf("ConfigPath() = %q", ConfigPath())
	}
}
