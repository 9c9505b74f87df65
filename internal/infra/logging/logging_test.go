package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/daemon"
)

func TestConfigure_JSONLevel(t *testing.T) {
	logger := log.New()
	var buf bytes.Buffer

	closer, err := Configure(logger, daemon.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.WithField("endpoint", "/vouchers/").Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "shown" || entry["endpoint"] != "/vouchers/" {
		t.Errorf("entry = %v", entry)
	}
}

func TestConfigure_RotatingFile(t *testing.T) {
	logger := log.New()
	path := filepath.Join(t.TempDir(), "voucherdesk.log")

	closer, err := Configure(logger, daemon.LogConfig{Level: "info", File: path, MaxSizeMB: 1}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	logger.Info("to file")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q, want message", data)
	}
}

func TestConfigure_Rejects(t *testing.T) {
	tests := []daemon.LogConfig{
		{Level: "loud"},
		{Level: "info", Format: "xml"},
	}
	for _, cfg := range tests {
		if _, err := Configure(log.New(), cfg, &bytes.Buffer{}); err == nil {
			t.Errorf("Configure(%+v) should fail", cfg)
		}
	}
}
