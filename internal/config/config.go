// Package config reads service and CLI settings from the environment, with
// an optional TOML file underneath.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port string

	// Auth; empty disables the bearer check.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Sessions
	SessionTTL time.Duration

	// DOCX codec
	CodecTimeout time.Duration

	// HTML
	SanitizeHTML bool
	MinifyHTML   bool

	// PDF
	PDFFallbackPdftotext bool

	LogLevel string
}

// fileConfig mirrors Config in TOML. Unset keys keep their defaults.
type fileConfig struct {
	Port                 *string `toml:"port"`
	APIKey               *string `toml:"api_key"`
	MaxUploadBytes       *int64  `toml:"max_upload_bytes"`
	SessionTTL           *string `toml:"session_ttl"`
	CodecTimeout         *string `toml:"codec_timeout"`
	SanitizeHTML         *bool   `toml:"sanitize_html"`
	MinifyHTML           *bool   `toml:"minify_html"`
	PDFFallbackPdftotext *bool   `toml:"pdf_fallback_pdftotext"`
	LogLevel             *string `toml:"log_level"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		MaxUploadBytes:       52428800, // 50MB
		SessionTTL:           1 * time.Hour,
		CodecTimeout:         30 * time.Second,
		SanitizeHTML:         true,
		PDFFallbackPdftotext: true,
		LogLevel:             "info",
	}
}

// Load returns the defaults overridden by environment variables.
func Load() Config {
	return fromEnv(defaults())
}

// LoadFile reads a TOML file over the defaults; environment variables still
// take precedence over the file.
func LoadFile(path string) (Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := fc.apply(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fromEnv(cfg), nil
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.APIKey != nil {
		cfg.APIKey = *fc.APIKey
	}
	if fc.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *fc.MaxUploadBytes
	}
	if fc.SessionTTL != nil {
		d, err := time.ParseDuration(*fc.SessionTTL)
		if err != nil {
			return fmt.Errorf("session_ttl: %w", err)
		}
		cfg.SessionTTL = d
	}
	if fc.CodecTimeout != nil {
		d, err := time.ParseDuration(*fc.CodecTimeout)
		if err != nil {
			return fmt.Errorf("codec_timeout: %w", err)
		}
		cfg.CodecTimeout = d
	}
	if fc.SanitizeHTML != nil {
		cfg.SanitizeHTML = *fc.SanitizeHTML
	}
	if fc.MinifyHTML != nil {
		cfg.MinifyHTML = *fc.MinifyHTML
	}
	if fc.PDFFallbackPdftotext != nil {
		cfg.PDFFallbackPdftotext = *fc.PDFFallbackPdftotext
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	return nil
}

func fromEnv(cfg Config) Config {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("BEDIT_API_KEY", cfg.APIKey)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.CodecTimeout = envDuration("CODEC_TIMEOUT", cfg.CodecTimeout)
	cfg.SanitizeHTML = envBool("SANITIZE_HTML", cfg.SanitizeHTML)
	cfg.MinifyHTML = envBool("MINIFY_HTML", cfg.MinifyHTML)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	return cfg
}

func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT must be a TCP port, got %q", c.Port)
	}
	if c.CodecTimeout < 0 {
		return fmt.Errorf("CODEC_TIMEOUT must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level is the slog level named by LogLevel; unknown names mean info.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
