// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/testutil"
	"github.com/olegiv/folio-go/internal/version"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "0 seconds"},
		{30 * time.Second, "30 seconds"},
		{1 * time.Minute, "1 minute"},
		{90 * time.Second, "1 minute"},
		{15 * time.Minute, "15 minutes"},
		{1 * time.Hour, "1 hour"},
		{90 * time.Minute, "1 hour"},
		{24 * time.Hour, "24 hours"},
	}

	for _, tt := range tests {
		t.Run(tt.duration.String(), func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("formatDuration(%v) = %q; want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		param  string
		wantID int64
		wantOK bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.param)
			req := httptest.NewRequest(http.MethodGet, "/project/"+tt.param, nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, ok := parseIDParam(req)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("parseIDParam(%q) = %d, %v; want %d, %v", tt.param, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestIsCrossSite(t *testing.T) {
	for value, want := range map[string]bool{
		"":            false,
		"none":        false,
		"same-origin": false,
		"same-site":   false,
		"cross-site":  true,
	} {
		req := httptest.NewRequest(http.MethodGet, "/delete/1", nil)
		if value != "" {
			req.Header.Set("Sec-Fetch-Site", value)
		}
		if got := isCrossSite(req); got != want {
			t.Errorf("isCrossSite(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(testutil.TestDB(t), "", &version.Info{})

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, RouteHealthLive, nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestHealthHandler_DiskCheck(t *testing.T) {
	h := NewHealthHandler(testutil.TestDB(t), t.TempDir(), nil)
	if c := h.checkDiskSpace(); c.Status == statusUnhealthy {
		t.Errorf("disk check = %+v", c)
	}

	h = NewHealthHandler(testutil.TestDB(t), "/does/not/exist", nil)
	if c := h.checkDiskSpace(); c.Status != statusHealthy {
		t.Errorf("missing dir check = %+v, want healthy", c)
	}
}

func TestHealthHandler_ReadinessClosedDB(t *testing.T) {
	db := testutil.TestDB(t)
	h := NewHealthHandler(db, "", nil)
	_ = db.Close()

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, RouteHealthReady, nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
