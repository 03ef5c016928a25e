// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/testutil"
)

func TestLogEvent(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "admin@example.com", "Admin")
	uid := u.ID

	err := svc.LogAuthEvent(ctx, model.EventLevelWarning, "Access denied", &uid, "10.0.0.1",
		map[string]any{"path": "/new-project"})
	if err != nil {
		t.Fatalf("LogAuthEvent: %v", err)
	}

	events, err := db.Queries().ListRecentEvents(ctx, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("ListRecentEvents = %v, %v", events, err)
	}
	e := events[0]
	if e.Category != model.EventCategoryAuth || e.Level != model.EventLevelWarning {
		t.Errorf("event = %+v", e)
	}
	if !e.UserID.Valid || e.UserID.Int64 != uid {
		t.Errorf("UserID = %+v, want %d", e.UserID, uid)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["ip"] != "10.0.0.1" || meta["path"] != "/new-project" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestLogEvent_InvalidLevel(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)

	if err := svc.LogEvent(context.Background(), "verbose", model.EventCategorySystem, "x", nil, "", nil); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestLogEvent_NoMetadata(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	if err := svc.LogContactEvent(ctx, model.EventLevelInfo, "Contact received", "", nil); err != nil {
		t.Fatalf("LogContactEvent: %v", err)
	}
	events, _ := db.Queries().ListRecentEvents(ctx, 1)
	if len(events) != 1 || events[0].Metadata != "{}" || events[0].UserID.Valid {
		t.Errorf("event = %+v", events)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	_ = svc.LogProjectEvent(ctx, model.EventLevelInfo, "old", nil, "", nil)
	_ = svc.LogProjectEvent(ctx, model.EventLevelInfo, "new", nil, "", nil)
	if _, err := db.ExecContext(ctx, `UPDATE events SET created_at = datetime('now', '-30 days') WHERE message = 'old'`); err != nil {
		t.Fatalf("backdating: %v", err)
	}

	n, err := svc.PurgeOlderThan(ctx, 7)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}
