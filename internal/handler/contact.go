// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/folio-go/internal/forms"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/render"
	"github.com/olegiv/folio-go/internal/service"
)

// ContactHandler serves the public contact form.
type ContactHandler struct {
	contacts *service.ContactService
	renderer *render.Renderer
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contacts *service.ContactService, renderer *render.Renderer) *ContactHandler {
	return &ContactHandler{
		contacts: contacts,
		renderer: renderer,
	}
}

// Form renders the contact page.
func (h *ContactHandler) Form(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, pageContact, render.TemplateData{
		Title: "Contact",
		Form:  forms.Contact{},
	})
}

// Submit stores the message and queues it for relay to the site owner.
// Relay failures are retried in the background and never reach the visitor.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form forms.Contact
	if err := forms.Bind(r, &form); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if errs := forms.Validate(form); errs.Any() {
		renderPage(w, r, h.renderer, pageContact, render.TemplateData{
			Title:  "Contact",
			Form:   form,
			Errors: errs,
		})
		return
	}

	contact, err := h.contacts.Submit(r.Context(), service.ContactInput{
		Name:      form.Name,
		Email:     form.Email,
		Subject:   form.Subject,
		Message:   form.Message,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		logAndInternalError(w, "failed to store contact message", "error", err)
		return
	}

	slog.Info("contact message stored", "contact_id", contact.ID, "reference", contact.Reference)
	flashSuccess(w, r, h.renderer, RouteContact, msgMessageSent)
}
