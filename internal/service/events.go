// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the application logic shared by handlers,
// middleware and background jobs.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// EventService records audit events.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *store.DB) *EventService {
	return &EventService{queries: db.Queries()}
}

// LogEvent creates a new event log entry. ipAddress, when set, is stored
// in the metadata.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	if !model.IsValidEventLevel(level) {
		return fmt.Errorf("invalid event level %q", level)
	}

	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	if ipAddress != "" {
		if metadata == nil {
			metadata = make(map[string]any, 1)
		}
		metadata["ip"] = ipAddress
	}

	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:    level,
		Category: category,
		Message:  message,
		UserID:   nullUserID,
		Metadata: metadataJSON,
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "message", message)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogProjectEvent logs a project post change.
func (s *EventService) LogProjectEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryProject, message, userID, ipAddress, metadata)
}

// LogContactEvent logs a contact form submission.
func (s *EventService) LogContactEvent(ctx context.Context, level, message string, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryContact, message, nil, ipAddress, metadata)
}

// PurgeOlderThan removes events older than days.
func (s *EventService) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	n, err := s.queries.DeleteEventsOlderThan(ctx, int64(days))
	if err != nil {
		return 0, fmt.Errorf("purging events: %w", err)
	}
	return n, nil
}
