package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values", func(t *testing.T) {
		path := writeFile(t, `
server:
  port: 9090
  session_idle_ttl: 30m
storage:
  driver: memory
auth:
  token_secret: "0123456789abcdef"
  token_ttl: 2h
  redirect_grace: 0s
items:
  fetch_retries: 5
log:
  level: debug
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Server.Port != 9090 || cfg.Storage.Driver != "memory" || cfg.Items.FetchRetries != 5 {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.Auth.TokenTTL != 2*time.Hour || cfg.Auth.RedirectGrace != 0 {
			t.Errorf("unexpected durations: %+v", cfg.Auth)
		}
		if cfg.Auth.RedirectMarkerTTL != 10*time.Minute {
			t.Errorf("default marker ttl lost: %v", cfg.Auth.RedirectMarkerTTL)
		}
		if cfg.Server.SessionIdleTTL != 30*time.Minute {
			t.Errorf("session idle ttl: got %v", cfg.Server.SessionIdleTTL)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeFile(t, `
storage:
  driver: memory
auth:
  token_secret: "0123456789abcdef"
`)
		t.Setenv("PORT", "7000")
		t.Setenv("REDIRECT_GRACE", "50ms")
		t.Setenv("SESSION_IDLE_TTL", "0s")
		t.Setenv("STORAGE_DRIVER", "sqlite")
		t.Setenv("DB_PATH", "/tmp/x.db")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Server.Port != 7000 || cfg.Auth.RedirectGrace != 50*time.Millisecond {
			t.Errorf("env not applied: %+v", cfg)
		}
		if cfg.Server.SessionIdleTTL != 0 {
			t.Errorf("session idle ttl env not applied: %v", cfg.Server.SessionIdleTTL)
		}
		if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/x.db" {
			t.Errorf("storage env not applied: %+v", cfg.Storage)
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		t.Setenv("TOKEN_SECRET", "0123456789abcdef")
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Server.Port != 8080 || cfg.Storage.Driver != "sqlite" || cfg.Server.SessionIdleTTL != 24*time.Hour {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			yaml string
		}{
			{name: "missing secret", yaml: "storage:\n  driver: memory\n"},
			{name: "unknown driver", yaml: "storage:\n  driver: postgres\nauth:\n  token_secret: \"0123456789abcdef\"\n"},
			{name: "firestore without project", yaml: "storage:\n  driver: firestore\nauth:\n  token_secret: \"0123456789abcdef\"\n"},
			{name: "bad port", yaml: "server:\n  port: 70000\nauth:\n  token_secret: \"0123456789abcdef\"\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := Load(writeFile(t, tt.yaml)); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("TOKEN_SECRET", "0123456789abcdef")
		t.Setenv("FETCH_RETRIES", "many")
		if _, err := Load(""); err == nil {
			t.Error("expected error")
		}
	})
}
