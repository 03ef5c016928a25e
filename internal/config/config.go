// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example secrets that must never be used.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DatabaseURL   string `env:"FOLIO_DATABASE_URL" envDefault:"sqlite:./data/folio.db"`
	SessionSecret string `env:"FOLIO_SESSION_SECRET,required"`
	ServerHost    string `env:"FOLIO_SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort    int    `env:"FOLIO_SERVER_PORT" envDefault:"5000"`
	Env           string `env:"FOLIO_ENV" envDefault:"development"`
	LogLevel      string `env:"FOLIO_LOG_LEVEL" envDefault:"info"`
	SiteName      string `env:"FOLIO_SITE_NAME" envDefault:"Folio"`

	// Account granted the admin role at startup, in addition to the first
	// registered user.
	AdminEmail string `env:"FOLIO_ADMIN_EMAIL"`

	// Outbound mail. The operator mailbox is both sender and recipient.
	MailAddress  string `env:"FOLIO_MAIL_ADDRESS"`
	MailPassword string `env:"FOLIO_MAIL_PASSWORD"`
	SMTPHost     string `env:"FOLIO_SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"FOLIO_SMTP_PORT" envDefault:"587"`
	MailWorkers  int    `env:"FOLIO_MAIL_WORKERS" envDefault:"2"`

	// Cache configuration
	RedisURL    string `env:"FOLIO_REDIS_URL"`                        // Optional Redis URL for distributed caching
	CachePrefix string `env:"FOLIO_CACHE_PREFIX" envDefault:"folio:"` // Redis key prefix
	CacheTTL    int    `env:"FOLIO_CACHE_TTL" envDefault:"300"`       // Project cache TTL in seconds

	MetricsEnabled bool `env:"FOLIO_METRICS_ENABLED" envDefault:"true"`

	// Honour X-Forwarded-For / X-Real-IP. Enable only behind a reverse proxy
	// that overwrites these headers.
	TrustProxy bool `env:"FOLIO_TRUST_PROXY" envDefault:"false"`

	// Event log retention in days, purged nightly.
	EventRetentionDays int `env:"FOLIO_EVENT_RETENTION_DAYS" envDefault:"90"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MailEnabled returns true if SMTP credentials are configured.
func (c Config) MailEnabled() bool {
	return c.MailAddress != "" && c.MailPassword != ""
}

// CacheDuration returns the project cache TTL.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// MinSessionSecretLength is the minimum required length for the session secret.
// The CSRF key derivation requires 32 bytes.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("FOLIO_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("FOLIO_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("FOLIO_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.MailWorkers < 1 {
		cfg.MailWorkers = 1
	}

	if (cfg.MailAddress == "") != (cfg.MailPassword == "") {
		slog.Warn("FOLIO_MAIL_ADDRESS and FOLIO_MAIL_PASSWORD must both be set; contact messages will only be logged")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
