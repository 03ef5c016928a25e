// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/folio-go/internal/auth"
	"github.com/olegiv/folio-go/internal/store"
)

// Account errors reported to handlers.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// dummyHash is verified against when the email is unknown so that both
// failure paths cost one argon2 computation.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHRzb21lc2FsdA$2x6hEYjVQ0mJqCkD0pYqv7Xh3H6s3x2x2gZr1vQy9bA"

// AccountService registers and authenticates users.
type AccountService struct {
	db      *store.DB
	queries *store.Queries
}

// NewAccountService creates an AccountService.
func NewAccountService(db *store.DB) *AccountService {
	return &AccountService{db: db, queries: db.Queries()}
}

// NormalizeEmail lowercases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. The very first account becomes admin.
func (s *AccountService) Register(ctx context.Context, email, password, name string) (store.User, error) {
	email = NormalizeEmail(email)

	exists, err := s.queries.UserEmailExists(ctx, email)
	if err != nil {
		return store.User{}, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return store.User{}, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return store.User{}, fmt.Errorf("hashing password: %w", err)
	}

	var user store.User
	err = s.db.InTx(ctx, func(q *store.Queries) error {
		if err := q.LockUsers(ctx); err != nil {
			return fmt.Errorf("locking users: %w", err)
		}
		var err error
		user, err = q.CreateUser(ctx, store.CreateUserParams{
			Email:        email,
			PasswordHash: hash,
			Name:         strings.TrimSpace(name),
		})
		return err
	})
	if err != nil {
		// Lost a race with a concurrent registration for the same email.
		if again, _ := s.queries.UserEmailExists(ctx, email); again {
			return store.User{}, ErrEmailTaken
		}
		return store.User{}, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user whose email and password match.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	user, err := s.queries.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		_, _ = auth.CheckPassword(password, dummyHash)
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("loading user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return store.User{}, ErrInvalidCredentials
	}
	if !ok {
		return store.User{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			_ = s.queries.UpdateUserPassword(ctx, user.ID, hash)
		}
	}
	if err := s.queries.UpdateUserLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// User loads a user by id.
func (s *AccountService) User(ctx context.Context, id int64) (store.User, error) {
	return s.queries.GetUserByID(ctx, id)
}
