// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Config selects and configures a backend.
type Config struct {
	RedisURL        string // empty selects the memory backend
	Prefix          string
	DefaultTTL      time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// Info describes the backend New picked.
type Info struct {
	Backend    string // "memory" or "redis"
	IsFallback bool   // Redis was configured but unreachable
}

// New creates a Redis cache when RedisURL is set and reachable, and a
// memory cache otherwise.
func New(cfg Config) (Cache, Info) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			return rc, Info{Backend: "redis"}
		}
		slog.Warn("redis cache unavailable, falling back to memory",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return newMemory(cfg), Info{Backend: "memory", IsFallback: true}
	}
	return newMemory(cfg), Info{Backend: "memory"}
}

func newMemory(cfg Config) *MemoryCache {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	return NewMemoryCache(MemoryOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxEntries:      cfg.MaxEntries,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
