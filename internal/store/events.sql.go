// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
)

const eventColumns = `id, level, category, message, user_id, metadata, created_at`

const createEvent = `
INSERT INTO events (level, category, message, user_id, metadata)
VALUES (?, ?, ?, ?, ?)`

type CreateEventParams struct {
	Level    string
	Category string
	Message  string
	UserID   sql.NullInt64
	Metadata string
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	_, err := q.exec(ctx, createEvent, arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata)
	return err
}

const listRecentEvents = `SELECT ` + eventColumns + ` FROM events ORDER BY id DESC LIMIT ?`

func (q *Queries) ListRecentEvents(ctx context.Context, limit int64) ([]Event, error) {
	rows, err := q.query(ctx, listRecentEvents, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Date arithmetic differs between the two dialects.
const (
	deleteEventsOlderThanSQLite   = `DELETE FROM events WHERE created_at < datetime('now', '-' || ? || ' days')`
	deleteEventsOlderThanPostgres = `DELETE FROM events WHERE created_at < NOW() - make_interval(days => ?::int)`
)

// DeleteEventsOlderThan removes events older than days and returns how many were removed.
func (q *Queries) DeleteEventsOlderThan(ctx context.Context, days int64) (int64, error) {
	query := deleteEventsOlderThanSQLite
	if q.dialect == DialectPostgres {
		query = deleteEventsOlderThanPostgres
	}
	res, err := q.exec(ctx, query, days)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countEvents = `SELECT COUNT(*) FROM events`

func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := q.queryRow(ctx, countEvents).Scan(&n)
	return n, err
}
