// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that copies warnings and errors
// into the events table.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// EventLogHandler wraps another slog.Handler and additionally writes records
// at or above its level to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler forwards WARN and above to the event log.
func NewEventLogHandler(inner slog.Handler, db *store.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel forwards records at or above level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *store.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: db.Queries(),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.write(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

func (h *EventLogHandler) write(ctx context.Context, r slog.Record) {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	category := ""
	var userID sql.NullInt64

	collect := func(a slog.Attr) bool {
		switch a.Key {
		case "category":
			category = a.Value.String()
		case "user_id":
			if a.Value.Kind() == slog.KindInt64 {
				userID = sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
			}
			fields[a.Key] = a.Value.String()
		default:
			fields[a.Key] = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)
	if path := middleware.GetRequestPath(ctx); path != "" {
		fields["url"] = path
	}

	if category == "" {
		category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			metadata = string(b)
		}
	}

	// Background context: the record must land even if the request was cancelled.
	_ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:    eventLevel(r.Level),
		Category: category,
		Message:  r.Message,
		UserID:   userID,
		Metadata: metadata,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login"), strings.Contains(msg, "logout"),
		strings.Contains(msg, "register"), strings.Contains(msg, "access denied"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "mail"), strings.Contains(msg, "smtp"):
		return model.EventCategoryMail
	case strings.Contains(msg, "contact"):
		return model.EventCategoryContact
	case strings.Contains(msg, "project"):
		return model.EventCategoryProject
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
