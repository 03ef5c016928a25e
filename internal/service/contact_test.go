// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
)

type recordingQueue struct {
	ids []int64
}

func (q *recordingQueue) Enqueue(id int64) { q.ids = append(q.ids, id) }

func TestContactService_Submit(t *testing.T) {
	db := testutil.TestDB(t)
	queue := &recordingQueue{}
	svc := NewContactService(db, queue, NewEventService(db))
	ctx := t.Context()

	c, err := svc.Submit(ctx, ContactInput{
		Name:      "Ada",
		Email:     "Ada@Example.com",
		Subject:   "Hello",
		Message:   "Nice portfolio!",
		IPAddress: "192.0.2.7",
		UserAgent: "curl/8.0",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := uuid.Parse(c.Reference); err != nil {
		t.Errorf("Reference %q is not a UUID: %v", c.Reference, err)
	}
	if c.Email != "ada@example.com" || c.IPAddress != "192.0.2.7" {
		t.Errorf("contact = %+v", c)
	}

	d, err := db.Queries().GetMailDeliveryByContact(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetMailDeliveryByContact: %v", err)
	}
	if d.Status != store.MailStatusPending {
		t.Errorf("delivery status = %q, want pending", d.Status)
	}
	if len(queue.ids) != 1 || queue.ids[0] != d.ID {
		t.Errorf("queued %v, want [%d]", queue.ids, d.ID)
	}

	events, err := db.Queries().ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].Category != model.EventCategoryContact {
		t.Errorf("events = %+v", events)
	}
}

func TestContactService_SubmitWithoutQueue(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewContactService(db, nil, nil)

	c, err := svc.Submit(t.Context(), ContactInput{Name: "Bob", Email: "bob@example.com", Subject: "s", Message: "m"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	n, err := db.Queries().CountMailDeliveriesByStatus(t.Context(), store.MailStatusPending)
	if err != nil {
		t.Fatalf("CountMailDeliveriesByStatus: %v", err)
	}
	if n != 1 {
		t.Errorf("pending deliveries = %d, want 1", n)
	}
	if c.ID == 0 {
		t.Error("contact not saved")
	}
}
