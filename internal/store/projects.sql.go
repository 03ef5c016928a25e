// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
)

const projectColumns = `id, title, subtitle, body, img_url, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (ProjectPost, error) {
	var p ProjectPost
	err := row.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Body, &p.ImgURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createProject = `
INSERT INTO project_posts (title, subtitle, body, img_url)
VALUES (?, ?, ?, ?)
RETURNING id`

type CreateProjectParams struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (ProjectPost, error) {
	var id int64
	if err := q.queryRow(ctx, createProject, arg.Title, arg.Subtitle, arg.Body, arg.ImgURL).Scan(&id); err != nil {
		return ProjectPost{}, err
	}
	return q.GetProject(ctx, id)
}

const getProject = `SELECT ` + projectColumns + ` FROM project_posts WHERE id = ?`

func (q *Queries) GetProject(ctx context.Context, id int64) (ProjectPost, error) {
	return scanProject(q.queryRow(ctx, getProject, id))
}

const listProjects = `SELECT ` + projectColumns + ` FROM project_posts ORDER BY id`

func (q *Queries) ListProjects(ctx context.Context) ([]ProjectPost, error) {
	rows, err := q.query(ctx, listProjects)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ProjectPost
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateProject = `
UPDATE project_posts
SET title = ?, subtitle = ?, body = ?, img_url = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateProjectParams struct {
	ID       int64
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}

// UpdateProject returns sql.ErrNoRows when the project does not exist.
func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) (ProjectPost, error) {
	res, err := q.exec(ctx, updateProject, arg.Title, arg.Subtitle, arg.Body, arg.ImgURL, arg.ID)
	if err != nil {
		return ProjectPost{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return ProjectPost{}, err
	} else if n == 0 {
		return ProjectPost{}, sql.ErrNoRows
	}
	return q.GetProject(ctx, arg.ID)
}

const deleteProject = `DELETE FROM project_posts WHERE id = ?`

func (q *Queries) DeleteProject(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, deleteProject, id)
	return err
}

const projectTitleExists = `SELECT EXISTS(SELECT 1 FROM project_posts WHERE title = ?)`

func (q *Queries) ProjectTitleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := q.queryRow(ctx, projectTitleExists, title).Scan(&exists)
	return exists, err
}

const projectTitleExistsExcept = `SELECT EXISTS(SELECT 1 FROM project_posts WHERE title = ? AND id <> ?)`

// ProjectTitleExistsExcept ignores the project being edited.
func (q *Queries) ProjectTitleExistsExcept(ctx context.Context, title string, id int64) (bool, error) {
	var exists bool
	err := q.queryRow(ctx, projectTitleExistsExcept, title, id).Scan(&exists)
	return exists, err
}

const countProjects = `SELECT COUNT(*) FROM project_posts`

func (q *Queries) CountProjects(ctx context.Context) (int64, error) {
	var n int64
	err := q.queryRow(ctx, countProjects).Scan(&n)
	return n, err
}
