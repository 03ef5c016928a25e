// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/olegiv/folio-go/internal/forms"
	"github.com/olegiv/folio-go/internal/metrics"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/render"
	"github.com/olegiv/folio-go/internal/service"
)

// ProjectsHandler serves the project list and detail pages and the
// administrator's create, edit and delete actions.
type ProjectsHandler struct {
	projects     *service.ProjectService
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(projects *service.ProjectService, renderer *render.Renderer, events *service.EventService) *ProjectsHandler {
	return &ProjectsHandler{
		projects:     projects,
		renderer:     renderer,
		eventService: events,
	}
}

// Index lists every project.
func (h *ProjectsHandler) Index(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list projects", "error", err)
		return
	}
	renderPage(w, r, h.renderer, pageIndex, render.TemplateData{Data: projects})
}

// Show renders one project.
func (h *ProjectsHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}

	project, err := h.projects.Get(r.Context(), id)
	if errors.Is(err, service.ErrProjectNotFound) {
		notFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load project", "project_id", id, "error", err)
		return
	}

	renderPage(w, r, h.renderer, pageProject, render.TemplateData{
		Title: project.Title,
		Data:  project,
	})
}

// NewForm renders an empty project form.
func (h *ProjectsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, pageMakeProject, render.TemplateData{
		Title: "New Project",
		Form:  forms.Project{},
	})
}

// Create stores a new project.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form forms.Project
	if err := forms.Bind(r, &form); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if errs := forms.Validate(form); errs.Any() {
		h.renderForm(w, r, form, errs, false)
		return
	}

	project, err := h.projects.Create(r.Context(), projectInput(form))
	if errors.Is(err, service.ErrDuplicateTitle) {
		errs := forms.Errors{}
		errs.Add("title", "A project with this title already exists.")
		h.renderForm(w, r, form, errs, false)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to create project", "error", err)
		return
	}

	metrics.RecordProjectChange("create")
	slog.Info("project created", "project_id", project.ID, "title", project.Title)
	h.logEvent(r, "Project created", project.ID, project.Title)

	flashSuccess(w, r, h.renderer, RouteRoot, msgProjectCreated)
}

// EditForm renders the project form pre-filled with the stored values.
func (h *ProjectsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}

	project, err := h.projects.Get(r.Context(), id)
	if errors.Is(err, service.ErrProjectNotFound) {
		notFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load project", "project_id", id, "error", err)
		return
	}

	h.renderForm(w, r, forms.Project{
		Title:    project.Title,
		Subtitle: project.Subtitle,
		ImgURL:   project.ImgURL,
		Body:     project.Body,
	}, nil, true)
}

// Update overwrites a project's editable fields.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}

	var form forms.Project
	if err := forms.Bind(r, &form); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if _, err := h.projects.Get(r.Context(), id); errors.Is(err, service.ErrProjectNotFound) {
		notFound(w, r, h.renderer)
		return
	} else if err != nil {
		logAndInternalError(w, "failed to load project", "project_id", id, "error", err)
		return
	}

	if errs := forms.Validate(form); errs.Any() {
		h.renderForm(w, r, form, errs, true)
		return
	}

	project, err := h.projects.Update(r.Context(), id, projectInput(form))
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		notFound(w, r, h.renderer)
		return
	case errors.Is(err, service.ErrDuplicateTitle):
		errs := forms.Errors{}
		errs.Add("title", "A project with this title already exists.")
		h.renderForm(w, r, form, errs, true)
		return
	case err != nil:
		logAndInternalError(w, "failed to update project", "project_id", id, "error", err)
		return
	}

	metrics.RecordProjectChange("update")
	slog.Info("project updated", "project_id", project.ID, "title", project.Title)
	h.logEvent(r, "Project updated", project.ID, project.Title)

	flashSuccess(w, r, h.renderer, fmt.Sprintf("%s/%d", RouteProject, project.ID), msgProjectUpdated)
}

// Delete removes a project.
//
// Delete is a GET route, so the CSRF middleware does not cover it; a link
// followed from another site is refused here.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if isCrossSite(r) {
		slog.Warn("cross-site project delete rejected",
			"category", "project",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		notFound(w, r, h.renderer)
		return
	}

	err := h.projects.Delete(r.Context(), id)
	if errors.Is(err, service.ErrProjectNotFound) {
		notFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to delete project", "project_id", id, "error", err)
		return
	}

	metrics.RecordProjectChange("delete")
	slog.Info("project deleted", "project_id", id)
	h.logEvent(r, "Project deleted", id, "")

	flashSuccess(w, r, h.renderer, RouteRoot, msgProjectDeleted)
}

func (h *ProjectsHandler) renderForm(w http.ResponseWriter, r *http.Request, form forms.Project, errs forms.Errors, isEdit bool) {
	title := "New Project"
	if isEdit {
		title = "Edit Project"
	}
	renderPage(w, r, h.renderer, pageMakeProject, render.TemplateData{
		Title:  title,
		Form:   form,
		Errors: errs,
		IsEdit: isEdit,
	})
}

func (h *ProjectsHandler) logEvent(r *http.Request, message string, projectID int64, title string) {
	metadata := map[string]any{"project_id": projectID}
	if title != "" {
		metadata["title"] = title
	}
	_ = h.eventService.LogProjectEvent(r.Context(), model.EventLevelInfo, message,
		middleware.GetUserIDPtr(r), middleware.ClientIP(r), metadata)
}

func projectInput(f forms.Project) service.ProjectInput {
	return service.ProjectInput{
		Title:    f.Title,
		Subtitle: f.Subtitle,
		Body:     f.Body,
		ImgURL:   f.ImgURL,
	}
}
