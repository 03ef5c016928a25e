// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for identity, authorization,
// request protection and instrumentation.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio-go/internal/metrics"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// SessionKeyUserID holds the signed-in user's id in the session.
const SessionKeyUserID = "user_id"

// UserLoader looks users up by id.
type UserLoader interface {
	User(ctx context.Context, id int64) (store.User, error)
}

// LoadIdentity resolves the session's user id into a user and stores it in
// the request context. A session pointing at a user that no longer exists
// is treated as anonymous and the stale id is removed.
func LoadIdentity(sm *scs.SessionManager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.User(r.Context(), userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					sm.Remove(r.Context(), SessionKeyUserID)
				} else {
					slog.Error("failed to load session user", "user_id", userID, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the current user, or nil for anonymous requests.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserIDPtr returns the current user's id, or nil when anonymous.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// IsAdmin reports whether the current user is an administrator.
func IsAdmin(r *http.Request) bool {
	user := GetUser(r)
	return user != nil && user.IsAdmin()
}

// RequireAdmin rejects every request whose user is not an administrator,
// anonymous users included, with 403. denied renders the response; nil
// means a plain text "Forbidden". Rejections are logged and, when events
// is set, recorded in the event log.
func RequireAdmin(events *service.EventService, denied http.Handler) func(http.Handler) http.Handler {
	if denied == nil {
		denied = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user != nil && user.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			var userID *int64
			role := "anonymous"
			if user != nil {
				userID = &user.ID
				role = user.Role
			}

			attrs := []any{
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"user_role", role,
				"remote_addr", r.RemoteAddr,
			}
			metrics.AccessDenied.Inc()

			// WARN records are copied to the events table; log at WARN only
			// when no auth event is written.
			if events != nil {
				slog.Info("access denied", attrs...)
				_ = events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Access denied: administrator required",
					userID, r.RemoteAddr, map[string]any{
						"method":    r.Method,
						"path":      r.URL.Path,
						"user_role": role,
					})
			} else {
				slog.Warn("access denied", attrs...)
			}

			denied.ServeHTTP(w, r)
		})
	}
}

// RequestPath stores the request path in the context for log enrichment.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
