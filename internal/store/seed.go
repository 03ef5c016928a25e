// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Roles stored in users.role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PromoteAdmin grants the admin role to the account registered under email.
// It is a no-op when email is empty or no such account exists yet; the
// account will then be promoted on the next start after it registers.
func PromoteAdmin(ctx context.Context, q *Queries, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	n, err := q.SetUserRoleByEmail(ctx, email, RoleAdmin)
	if err != nil {
		return fmt.Errorf("promoting admin: %w", err)
	}
	if n == 0 {
		slog.Info("admin account not registered yet", "email", email)
		return nil
	}
	slog.Info("admin role ensured", "email", email)
	return nil
}
