// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const contactColumns = `id, reference, name, email, subject, message, ip_address, user_agent, created_at`

func scanContact(row interface{ Scan(...interface{}) error }) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Reference, &c.Name, &c.Email, &c.Subject, &c.Message,
		&c.IPAddress, &c.UserAgent, &c.CreatedAt)
	return c, err
}

const createContact = `
INSERT INTO contacts (reference, name, email, subject, message, ip_address, user_agent)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateContactParams struct {
	Reference string
	Name      string
	Email     string
	Subject   string
	Message   string
	IPAddress string
	UserAgent string
}

func (q *Queries) CreateContact(ctx context.Context, arg CreateContactParams) (Contact, error) {
	var id int64
	err := q.queryRow(ctx, createContact,
		arg.Reference, arg.Name, arg.Email, arg.Subject, arg.Message, arg.IPAddress, arg.UserAgent).Scan(&id)
	if err != nil {
		return Contact{}, err
	}
	return q.GetContact(ctx, id)
}

const getContact = `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`

func (q *Queries) GetContact(ctx context.Context, id int64) (Contact, error) {
	return scanContact(q.queryRow(ctx, getContact, id))
}

const countContacts = `SELECT COUNT(*) FROM contacts`

func (q *Queries) CountContacts(ctx context.Context) (int64, error) {
	var n int64
	err := q.queryRow(ctx, countContacts).Scan(&n)
	return n, err
}
