// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/folio-go/internal/render"
)

// PagesHandler serves static pages and error pages.
type PagesHandler struct {
	renderer *render.Renderer
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(renderer *render.Renderer) *PagesHandler {
	return &PagesHandler{renderer: renderer}
}

// About renders the about page.
func (h *PagesHandler) About(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, pageAbout, render.TemplateData{Title: "About"})
}

// NotFound renders the 404 page for unknown routes.
func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	notFound(w, r, h.renderer)
}

// MethodNotAllowed renders the 405 page.
func (h *PagesHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.renderer, http.StatusMethodNotAllowed, "That method is not supported here.")
}
