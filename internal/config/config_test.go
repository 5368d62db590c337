package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "BEDIT_API_KEY", "MAX_UPLOAD_BYTES", "SESSION_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected 50MB limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.SessionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("MINIFY_HTML", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "-1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Errorf("expected 15m, got %v", cfg.SessionTTL)
	}
	if !cfg.MinifyHTML {
		t.Error("expected MinifyHTML")
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("non-positive limit should reset to default, got %d", cfg.MaxUploadBytes)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Level())
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CODEC_TIMEOUT", "")
	t.Setenv("SANITIZE_HTML", "")
	t.Setenv("BEDIT_API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "bedit.toml")
	body := `port = "7000"
api_key = "from-file"
codec_timeout = "5s"
sanitize_html = false
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("expected port from file, got %q", cfg.Port)
	}
	if cfg.CodecTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.CodecTimeout)
	}
	if cfg.SanitizeHTML {
		t.Error("expected sanitize_html=false from file")
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("environment should win over file, got %q", cfg.APIKey)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte(`session_ttl = "soon"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Port = "http"
	if cfg.Validate() == nil {
		t.Error("expected error for non-numeric port")
	}
	cfg.Port = "8080"
	cfg.LogLevel = "loud"
	if cfg.Validate() == nil {
		t.Error("expected error for unknown log level")
	}
}
