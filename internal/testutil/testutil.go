// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"database/sql"
	"log/slog"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/folio-go/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that only outputs errors.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB returns a migrated in-memory SQLite database closed at test end.
// The pool is pinned to one connection so every query sees the same
// in-memory database.
func TestDB(t *testing.T) *store.DB {
	t.Helper()

	raw, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = raw.Close() })

	db := store.Wrap(raw, store.DialectSQLite)
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with a placeholder hash. The first user
// created in a database becomes admin.
func CreateUser(t *testing.T, db *store.DB, email, name string) store.User {
	t.Helper()

	u, err := db.Queries().CreateUser(t.Context(), store.CreateUserParams{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$a2V5",
		Name:         name,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// CreateProject inserts a project post.
func CreateProject(t *testing.T, db *store.DB, title string) store.ProjectPost {
	t.Helper()

	p, err := db.Queries().CreateProject(t.Context(), store.CreateProjectParams{
		Title:    title,
		Subtitle: title + " subtitle",
		Body:     "**" + title + "** body",
		ImgURL:   "https://example.com/" + title + ".png",
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

// CreateContact inserts a contact submission with a pending delivery due now.
func CreateContact(t *testing.T, db *store.DB, name, email string) (store.Contact, store.MailDelivery) {
	t.Helper()

	q := db.Queries()
	c, err := q.CreateContact(t.Context(), store.CreateContactParams{
		Reference: "ref-" + email,
		Name:      name,
		Email:     email,
		Subject:   "Hello",
		Message:   "Hi there",
		IPAddress: "192.0.2.1",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	d, err := q.CreateMailDelivery(t.Context(), c.ID, 0)
	if err != nil {
		t.Fatalf("CreateMailDelivery: %v", err)
	}
	return c, d
}
