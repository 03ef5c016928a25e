// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds the shared vocabulary of the event log.
package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryProject = "project"
	EventCategoryContact = "contact"
	EventCategoryMail    = "mail"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)

// EventLevels lists every valid level.
var EventLevels = []string{EventLevelInfo, EventLevelWarning, EventLevelError}

// IsValidEventLevel reports whether level is one of EventLevels.
func IsValidEventLevel(level string) bool {
	for _, l := range EventLevels {
		if l == level {
			return true
		}
	}
	return false
}
