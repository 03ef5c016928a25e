// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures server-side sessions stored in the
// application database.
package session

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio-go/internal/store"
)

// Lifetime is the absolute session lifetime.
const Lifetime = 24 * time.Hour

// New creates a session manager backed by the sessions table of db.
func New(db *store.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	switch db.Dialect {
	case store.DialectPostgres:
		sm.Store = postgresstore.New(db.DB)
	default:
		sm.Store = sqlite3store.New(db.DB)
	}

	sm.Lifetime = Lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !isDev
	if !isDev {
		// __Host- requires Secure, Path=/ and no Domain.
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}
