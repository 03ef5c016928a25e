// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

// Mail delivery statuses.
const (
	MailStatusPending = "pending"
	MailStatusSent    = "sent"
	MailStatusDead    = "dead"
)

const mailDeliveryColumns = `id, contact_id, status, attempts, last_error, next_retry_at, created_at, updated_at, sent_at`

func scanMailDelivery(row interface{ Scan(...interface{}) error }) (MailDelivery, error) {
	var d MailDelivery
	err := row.Scan(&d.ID, &d.ContactID, &d.Status, &d.Attempts, &d.LastError, &d.NextRetryAt,
		&d.CreatedAt, &d.UpdatedAt, &d.SentAt)
	return d, err
}

const createMailDelivery = `
INSERT INTO mail_deliveries (contact_id, status, next_retry_at)
VALUES (?, 'pending', ?)
RETURNING id`

func (q *Queries) CreateMailDelivery(ctx context.Context, contactID, nextRetryAt int64) (MailDelivery, error) {
	var id int64
	if err := q.queryRow(ctx, createMailDelivery, contactID, nextRetryAt).Scan(&id); err != nil {
		return MailDelivery{}, err
	}
	return q.GetMailDelivery(ctx, id)
}

const getMailDelivery = `SELECT ` + mailDeliveryColumns + ` FROM mail_deliveries WHERE id = ?`

func (q *Queries) GetMailDelivery(ctx context.Context, id int64) (MailDelivery, error) {
	return scanMailDelivery(q.queryRow(ctx, getMailDelivery, id))
}

const getMailDeliveryByContact = `SELECT ` + mailDeliveryColumns + ` FROM mail_deliveries WHERE contact_id = ?`

func (q *Queries) GetMailDeliveryByContact(ctx context.Context, contactID int64) (MailDelivery, error) {
	return scanMailDelivery(q.queryRow(ctx, getMailDeliveryByContact, contactID))
}

// A claim pushes next_retry_at forward to leaseUntil so that no other
// worker picks the same delivery while it is being sent.
const claimMailDelivery = `
UPDATE mail_deliveries
SET next_retry_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'pending' AND next_retry_at <= ?`

// ClaimMailDelivery reports whether the caller now owns the delivery.
func (q *Queries) ClaimMailDelivery(ctx context.Context, id, now, leaseUntil int64) (bool, error) {
	res, err := q.exec(ctx, claimMailDelivery, leaseUntil, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const markMailDeliverySent = `
UPDATE mail_deliveries
SET status = 'sent', attempts = attempts + 1, last_error = NULL,
    sent_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) MarkMailDeliverySent(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, markMailDeliverySent, id)
	return err
}

const markMailDeliveryRetry = `
UPDATE mail_deliveries
SET attempts = attempts + 1, last_error = ?, next_retry_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) MarkMailDeliveryRetry(ctx context.Context, id int64, lastError string, nextRetryAt int64) error {
	_, err := q.exec(ctx, markMailDeliveryRetry, lastError, nextRetryAt, id)
	return err
}

const markMailDeliveryDead = `
UPDATE mail_deliveries
SET status = 'dead', attempts = attempts + 1, last_error = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) MarkMailDeliveryDead(ctx context.Context, id int64, lastError string) error {
	_, err := q.exec(ctx, markMailDeliveryDead, lastError, id)
	return err
}

const listDueMailDeliveries = `
SELECT id FROM mail_deliveries
WHERE status = 'pending' AND next_retry_at <= ?
ORDER BY next_retry_at, id
LIMIT ?`

// ListDueMailDeliveries returns ids of pending deliveries ready to be sent.
func (q *Queries) ListDueMailDeliveries(ctx context.Context, now, limit int64) ([]int64, error) {
	rows, err := q.query(ctx, listDueMailDeliveries, now, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

const countMailDeliveriesByStatus = `SELECT COUNT(*) FROM mail_deliveries WHERE status = ?`

func (q *Queries) CountMailDeliveriesByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.queryRow(ctx, countMailDeliveriesByStatus, status).Scan(&n)
	return n, err
}
