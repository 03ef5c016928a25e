// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TypedCache stores values of T as JSON in an underlying Cache.
type TypedCache[T any] struct {
	cache Cache
	ttl   time.Duration
}

// NewTypedCache wraps c; ttl applies to every Set.
func NewTypedCache[T any](c Cache, ttl time.Duration) *TypedCache[T] {
	return &TypedCache[T]{cache: c, ttl: ttl}
}

// Get returns the cached value and true on a hit. Undecodable entries are
// treated as misses.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Set stores value under key.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, data, c.ttl)
}

// Delete removes key.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}
