// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import "testing"

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"sqlite:./data/folio.db", "sqlite:./data/folio.db"},
		{"postgres://folio:secret@db:5432/folio", "postgres://folio:xxxxx@db:5432/folio"},
		{"postgres://db/folio", "postgres://db/folio"},
	}
	for _, tt := range tests {
		if got := redactDSN(tt.dsn); got != tt.want {
			t.Errorf("redactDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}
