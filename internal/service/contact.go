// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/metrics"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// MailQueue accepts delivery ids for background sending.
type MailQueue interface {
	Enqueue(deliveryID int64)
}

// ContactInput is a validated contact form submission.
type ContactInput struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	IPAddress string
	UserAgent string
}

// ContactService persists contact messages and hands them to the mail queue.
type ContactService struct {
	db     *store.DB
	queue  MailQueue
	events *EventService
}

// NewContactService creates a ContactService. queue may be nil, in which
// case deliveries wait for the periodic retry sweep.
func NewContactService(db *store.DB, queue MailQueue, events *EventService) *ContactService {
	return &ContactService{db: db, queue: queue, events: events}
}

// Submit stores the message and its pending delivery atomically. Relay
// failures never surface here.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (store.Contact, error) {
	var (
		contact  store.Contact
		delivery store.MailDelivery
	)
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		var err error
		contact, err = q.CreateContact(ctx, store.CreateContactParams{
			Reference: uuid.NewString(),
			Name:      in.Name,
			Email:     NormalizeEmail(in.Email),
			Subject:   in.Subject,
			Message:   in.Message,
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
		})
		if err != nil {
			return fmt.Errorf("saving contact: %w", err)
		}
		delivery, err = q.CreateMailDelivery(ctx, contact.ID, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("scheduling contact mail: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Contact{}, err
	}

	metrics.ContactSubmissions.Inc()
	if s.events != nil {
		_ = s.events.LogContactEvent(ctx, model.EventLevelInfo, "Contact message received", in.IPAddress, map[string]any{
			"reference": contact.Reference,
			"subject":   contact.Subject,
		})
	}
	if s.queue != nil {
		s.queue.Enqueue(delivery.ID)
	}
	return contact, nil
}
