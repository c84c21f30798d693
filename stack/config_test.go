package stack

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NetworkPrefix != "supabase" {
		t.Fatalf("network prefix = %q", cfg.NetworkPrefix)
	}
	if cfg.Postgres.Image != "docker.io/postgres:15-alpine" {
		t.Fatalf("postgres image = %q", cfg.Postgres.Image)
	}
	if !cfg.Auth.Enabled || !cfg.PostgREST.Enabled {
		t.Fatalf("auth and postgrest must be enabled by default")
	}
	if cfg.Realtime.Enabled || cfg.Storage.Enabled {
		t.Fatalf("realtime and storage must be disabled by default")
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  enabled: true
postgrest:
  enabled: true
  tag: v12.0.0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NetworkPrefix != "supabase" {
		t.Fatalf("network prefix default lost: %q", cfg.NetworkPrefix)
	}
	if cfg.Postgres.Username != "postgres" || cfg.Postgres.Password != "postgres" {
		t.Fatalf("postgres defaults lost: %+v", cfg.Postgres)
	}
	if cfg.PostgREST.Tag != "v12.0.0" {
		t.Fatalf("postgrest tag = %q", cfg.PostgREST.Tag)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
jwt_secret: from-file
postgres:
  password: from-file
`)
	t.Setenv("SUPABASE_JWT_SECRET", "from-env")
	t.Setenv("SUPABASE_DB_PASSWORD", "env-password")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("jwt secret = %q", cfg.JWTSecret)
	}
	if cfg.Postgres.Password != "env-password" {
		t.Fatalf("db password = %q", cfg.Postgres.Password)
	}
}

func TestLoadSecretFile(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "jwt.secret")
	if err := os.WriteFile(secretPath, []byte("file-secret\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	path := writeConfig(t, `{}`)
	t.Setenv("SUPABASE_JWT_SECRET", "")
	t.Setenv("SUPABASE_JWT_SECRET_FILE", secretPath)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Fatalf("jwt secret = %q", cfg.JWTSecret)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "postgres: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
