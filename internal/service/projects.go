// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/store"
)

// Project errors reported to handlers.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrDuplicateTitle  = errors.New("a project with this title already exists")
)

// ProjectInput carries the editable fields of a project post.
type ProjectInput struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}

// ProjectView is a project post prepared for templates.
type ProjectView struct {
	store.ProjectPost
	HTML    template.HTML
	Excerpt string
}

// ProjectService reads project posts through the cache and writes them
// through the store, invalidating the cache on every change.
type ProjectService struct {
	db    *store.DB
	cache *cache.ProjectCache
}

// NewProjectService creates a ProjectService.
func NewProjectService(db *store.DB, pc *cache.ProjectCache) *ProjectService {
	return &ProjectService{db: db, cache: pc}
}

// List returns every project ordered by id.
func (s *ProjectService) List(ctx context.Context) ([]ProjectView, error) {
	posts, err := s.cache.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	views := make([]ProjectView, 0, len(posts))
	for _, p := range posts {
		views = append(views, ProjectView{ProjectPost: p, Excerpt: Excerpt(p.Body, 160)})
	}
	return views, nil
}

// Get returns one project with its rendered body.
func (s *ProjectService) Get(ctx context.Context, id int64) (ProjectView, error) {
	p, err := s.cache.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectView{}, ErrProjectNotFound
	}
	if err != nil {
		return ProjectView{}, fmt.Errorf("loading project %d: %w", id, err)
	}
	return ProjectView{ProjectPost: p, HTML: RenderBody(p.Body), Excerpt: Excerpt(p.Body, 160)}, nil
}

// Create stores a new project. The title must be unused.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (store.ProjectPost, error) {
	var created store.ProjectPost
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		exists, err := q.ProjectTitleExists(ctx, in.Title)
		if err != nil {
			return fmt.Errorf("checking title: %w", err)
		}
		if exists {
			return ErrDuplicateTitle
		}
		created, err = q.CreateProject(ctx, store.CreateProjectParams{
			Title:    in.Title,
			Subtitle: in.Subtitle,
			Body:     in.Body,
			ImgURL:   in.ImgURL,
		})
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.ProjectPost{}, err
	}
	s.invalidate(ctx, created.ID)
	return created, nil
}

// Update overwrites every editable field of project id. The title must not
// be used by another project.
func (s *ProjectService) Update(ctx context.Context, id int64, in ProjectInput) (store.ProjectPost, error) {
	var updated store.ProjectPost
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		exists, err := q.ProjectTitleExistsExcept(ctx, in.Title, id)
		if err != nil {
			return fmt.Errorf("checking title: %w", err)
		}
		if exists {
			return ErrDuplicateTitle
		}
		updated, err = q.UpdateProject(ctx, store.UpdateProjectParams{
			ID:       id,
			Title:    in.Title,
			Subtitle: in.Subtitle,
			Body:     in.Body,
			ImgURL:   in.ImgURL,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return fmt.Errorf("updating project: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.ProjectPost{}, err
	}
	s.invalidate(ctx, id)
	return updated, nil
}

// Delete removes project id.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	q := s.db.Queries()
	if _, err := q.GetProject(ctx, id); errors.Is(err, sql.ErrNoRows) {
		return ErrProjectNotFound
	} else if err != nil {
		return fmt.Errorf("loading project %d: %w", id, err)
	}
	if err := q.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *ProjectService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		slog.Warn("project cache invalidation failed", "project_id", id, "error", err)
	}
}
