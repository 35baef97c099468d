package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
postgres:
  url: postgres://file
auth:
  secret: from-file
  tokenTTL: 2h
results:
  persistTimeout: 3s
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_AUTH_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Postgres.URL != "postgres://file" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Auth.Secret)
	}
	if got := TTLDuration(cfg.Auth.TokenTTL, time.Hour); got != 2*time.Hour {
		t.Fatalf("expected 2h token ttl, got %v", got)
	}
	if got := TTLDuration(cfg.Results.PersistTimeout, time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s persist timeout, got %v", got)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("QUIZ_SQLITE_PATH", "/tmp/quiz.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SQLite.Path != "/tmp/quiz.db" {
		t.Fatalf("expected sqlite path from env, got %q", cfg.SQLite.Path)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
