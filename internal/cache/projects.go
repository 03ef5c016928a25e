// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/store"
)

const (
	keyProjectList   = "projects:all"
	keyProjectPrefix = "projects:id:"
)

// ProjectLoader is the subset of store.Queries the project cache reads through.
type ProjectLoader interface {
	ListProjects(ctx context.Context) ([]store.ProjectPost, error)
	GetProject(ctx context.Context, id int64) (store.ProjectPost, error)
}

// ProjectCache is a read-through cache of project posts. Writers must call
// Invalidate after every create, update or delete has committed.
//
// Every Invalidate bumps a generation counter. A fill whose load started
// under an older generation is returned to its caller but not stored, so a
// read racing a write cannot put stale rows back after the invalidation.
type ProjectCache struct {
	list   *TypedCache[[]store.ProjectPost]
	single *TypedCache[store.ProjectPost]
	loader ProjectLoader

	mu  sync.Mutex
	gen uint64
}

// NewProjectCache creates a ProjectCache over c. A zero ttl uses the
// backend default.
func NewProjectCache(c Cache, loader ProjectLoader, ttl time.Duration) *ProjectCache {
	return &ProjectCache{
		list:   NewTypedCache[[]store.ProjectPost](c, ttl),
		single: NewTypedCache[store.ProjectPost](c, ttl),
		loader: loader,
	}
}

// All returns every project ordered by id.
func (c *ProjectCache) All(ctx context.Context) ([]store.ProjectPost, error) {
	return readThrough(ctx, c, c.list, keyProjectList, func() ([]store.ProjectPost, error) {
		return c.loader.ListProjects(ctx)
	})
}

// Get returns one project. Lookup errors from the loader, including
// sql.ErrNoRows, are returned unchanged and never cached.
func (c *ProjectCache) Get(ctx context.Context, id int64) (store.ProjectPost, error) {
	return readThrough(ctx, c, c.single, projectKey(id), func() (store.ProjectPost, error) {
		return c.loader.GetProject(ctx, id)
	})
}

// Invalidate drops the listing and, when id is non-zero, the single entry.
func (c *ProjectCache) Invalidate(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++

	if err := c.list.Delete(ctx, keyProjectList); err != nil {
		return err
	}
	if id != 0 {
		return c.single.Delete(ctx, projectKey(id))
	}
	return nil
}

func (c *ProjectCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// readThrough returns the cached value under key or loads it. The loaded
// value is stored only if no Invalidate ran while it was loading. Load
// errors are returned and never cached.
func readThrough[T any](ctx context.Context, c *ProjectCache, tc *TypedCache[T], key string, load func() (T, error)) (T, error) {
	if v, ok := tc.Get(ctx, key); ok {
		return v, nil
	}
	gen := c.generation()
	v, err := load()
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		_ = tc.Set(ctx, key, v)
	}
	return v, nil
}

func projectKey(id int64) string {
	return keyProjectPrefix + strconv.FormatInt(id, 10)
}
