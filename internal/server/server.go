// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package server assembles the HTTP router: the middleware stack, the
// public and administrator routes, health probes and static assets.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/metrics"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/render"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/version"
)

// DefaultRequestTimeout bounds every request.
const DefaultRequestTimeout = 30 * time.Second

// staticMaxAge is the browser cache lifetime of embedded assets.
const staticMaxAge = 7 * 24 * time.Hour

// Config holds everything the router needs.
type Config struct {
	DB              *store.DB
	Sessions        *scs.SessionManager
	Renderer        *render.Renderer
	Accounts        *service.AccountService
	Projects        *service.ProjectService
	Contacts        *service.ContactService
	Events          *service.EventService
	LoginProtection *middleware.LoginProtection // nil disables lockout and login rate limiting
	Version         *version.Info

	StaticFS fs.FS  // served under /static/, nil to disable
	DataDir  string // reported by the health check

	CSRFKey        []byte
	IsDevelopment  bool
	TrustProxy     bool // apply proxy headers to RemoteAddr
	MetricsEnabled bool
	RequestTimeout time.Duration // zero uses DefaultRequestTimeout
	RateLimit      float64       // requests per second per IP, zero disables
	RateBurst      int
}

func (c Config) validate() error {
	switch {
	case c.DB == nil:
		return errors.New("server: DB is required")
	case c.Sessions == nil:
		return errors.New("server: Sessions is required")
	case c.Renderer == nil:
		return errors.New("server: Renderer is required")
	case c.Accounts == nil || c.Projects == nil || c.Contacts == nil || c.Events == nil:
		return errors.New("server: services are required")
	case len(c.CSRFKey) < 32:
		return fmt.Errorf("server: CSRF key must be at least 32 bytes, got %d", len(c.CSRFKey))
	}
	return nil
}

// NewRouter builds the application router.
func NewRouter(cfg Config) (http.Handler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	authHandler := handler.NewAuthHandler(cfg.Accounts, cfg.Renderer, cfg.Sessions, cfg.Events, cfg.LoginProtection)
	projectsHandler := handler.NewProjectsHandler(cfg.Projects, cfg.Renderer, cfg.Events)
	contactHandler := handler.NewContactHandler(cfg.Contacts, cfg.Renderer)
	pagesHandler := handler.NewPagesHandler(cfg.Renderer)
	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.DataDir, cfg.Version)

	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))
	r.Use(middleware.RequestPath)
	r.Use(cfg.Sessions.LoadAndSave)
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(cfg.CSRFKey, cfg.IsDevelopment)))
	r.Use(middleware.LoadIdentity(cfg.Sessions, cfg.Accounts))
	if cfg.RateLimit > 0 {
		r.Use(middleware.NewGlobalRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware())
		slog.Info("public rate limiter initialized", "rate", cfg.RateLimit, "burst", cfg.RateBurst)
	}

	// Health and metrics
	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)
	if cfg.MetricsEnabled {
		r.Handle(handler.RouteMetrics, metrics.Handler())
	}

	// Public pages
	r.Get(handler.RouteRoot, projectsHandler.Index)
	r.Get(handler.RouteProjectID, projectsHandler.Show)
	r.Get(handler.RouteAbout, pagesHandler.About)
	r.Get(handler.RouteContact, contactHandler.Form)
	r.Post(handler.RouteContact, contactHandler.Submit)

	// Auth
	r.Get(handler.RouteRegister, authHandler.RegisterForm)
	r.Post(handler.RouteRegister, authHandler.Register)
	r.Get(handler.RouteLogin, authHandler.LoginForm)
	if cfg.LoginProtection != nil {
		r.With(cfg.LoginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
	} else {
		r.Post(handler.RouteLogin, authHandler.Login)
	}
	r.Get(handler.RouteLogout, authHandler.Logout)

	// Administrator only
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(cfg.Events, nil))

		r.Get(handler.RouteNewProject, projectsHandler.NewForm)
		r.Post(handler.RouteNewProject, projectsHandler.Create)
		r.Get(handler.RouteEditProjectID, projectsHandler.EditForm)
		r.Post(handler.RouteEditProjectID, projectsHandler.Update)
		r.Get(handler.RouteDeleteProjectID, projectsHandler.Delete)
	})

	if cfg.StaticFS != nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(cfg.StaticFS)))
		r.Handle(handler.RouteStatic, middleware.StaticCache(staticMaxAge)(static))
	}

	r.NotFound(pagesHandler.NotFound)
	r.MethodNotAllowed(pagesHandler.MethodNotAllowed)

	return r, nil
}
