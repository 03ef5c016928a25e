// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const userColumns = `id, email, password_hash, name, role, created_at, last_login_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// The first account ever created becomes the administrator. The role is
// decided inside the INSERT. That alone is atomic only on SQLite, which has
// a single writer; on PostgreSQL callers must hold LockUsers in the same
// transaction.
const createUser = `
INSERT INTO users (email, password_hash, name, role)
VALUES (?, ?, ?, CASE WHEN (SELECT COUNT(*) FROM users) = 0 THEN 'admin' ELSE 'user' END)
RETURNING id`

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var id int64
	if err := q.queryRow(ctx, createUser, arg.Email, arg.PasswordHash, arg.Name).Scan(&id); err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

const lockUsers = `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`

// LockUsers blocks concurrent account creation until the surrounding
// transaction ends. It is a no-op on SQLite, where transactions begin
// IMMEDIATE and already hold the write lock.
func (q *Queries) LockUsers(ctx context.Context) error {
	if q.dialect != DialectPostgres {
		return nil
	}
	_, err := q.exec(ctx, lockUsers)
	return err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.queryRow(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.queryRow(ctx, getUserByEmail, email))
}

const userEmailExists = `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`

func (q *Queries) UserEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.queryRow(ctx, userEmailExists, email).Scan(&exists)
	return exists, err
}

const updateUserLastLogin = `UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, updateUserLastLogin, id)
	return err
}

const updateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.exec(ctx, updateUserPassword, passwordHash, id)
	return err
}

const setUserRoleByEmail = `UPDATE users SET role = ? WHERE email = ?`

// SetUserRoleByEmail returns the number of rows changed.
func (q *Queries) SetUserRoleByEmail(ctx context.Context, email, role string) (int64, error) {
	res, err := q.exec(ctx, setUserRoleByEmail, role, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.queryRow(ctx, countUsers).Scan(&n)
	return n, err
}
