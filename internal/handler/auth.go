// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio-go/internal/forms"
	"github.com/olegiv/folio-go/internal/metrics"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/render"
	"github.com/olegiv/folio-go/internal/service"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	accounts        *service.AccountService
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil to disable
// account lockout.
func NewAuthHandler(accounts *service.AccountService, renderer *render.Renderer, sm *scs.SessionManager, events *service.EventService, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		accounts:        accounts,
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    events,
		loginProtection: lp,
	}
}

// RegisterForm renders the sign-up page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, pageRegister, render.TemplateData{
		Title: "Register",
		Form:  forms.Register{},
	})
}

// Register handles the sign-up form submission.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var form forms.Register
	if err := forms.Bind(r, &form); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if errs := forms.Validate(form); errs.Any() {
		form.Password = ""
		renderPage(w, r, h.renderer, pageRegister, render.TemplateData{
			Title:  "Register",
			Form:   form,
			Errors: errs,
		})
		return
	}

	clientIP := middleware.ClientIP(r)

	user, err := h.accounts.Register(r.Context(), form.Email, form.Password, form.Name)
	if errors.Is(err, service.ErrEmailTaken) {
		slog.Debug("registration for existing email", "email", form.Email)
		flashAndRedirect(w, r, h.renderer, RouteLogin, msgAlreadyRegistered, render.FlashInfo)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to register user", "error", err)
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User registered", &user.ID, clientIP,
		map[string]any{"email": user.Email, "role": user.Role})

	flashSuccess(w, r, h.renderer, RouteRoot, fmt.Sprintf(msgWelcome, user.Name))
}

// LoginForm renders the login page. Signed-in users go to the project list.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, pageLogin, render.TemplateData{
		Title: "Log In",
		Form:  forms.Login{},
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form forms.Login
	if err := forms.Bind(r, &form); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if errs := forms.Validate(form); errs.Any() {
		form.Password = ""
		renderPage(w, r, h.renderer, pageLogin, render.TemplateData{
			Title:  "Log In",
			Form:   form,
			Errors: errs,
		})
		return
	}

	email := service.NormalizeEmail(form.Email)
	clientIP := middleware.ClientIP(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			metrics.RecordLogin("locked")
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", nil, clientIP,
				map[string]any{"email": email})
			flashError(w, r, h.renderer, RouteLogin, fmt.Sprintf(msgAccountLocked, formatDuration(remaining)))
			return
		}
	}

	user, err := h.accounts.Authenticate(r.Context(), email, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		metrics.RecordLogin("failure")
		slog.Debug("login failed", "email", email)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed", nil, clientIP,
			map[string]any{"email": email})

		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
				_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts", nil, clientIP,
					map[string]any{"email": email, "duration": lockDuration.String()})
				flashError(w, r, h.renderer, RouteLogin, fmt.Sprintf(msgAccountLocked, formatDuration(lockDuration)))
				return
			}
		}
		flashError(w, r, h.renderer, RouteLogin, msgInvalidCredentials)
		return
	}
	if err != nil {
		logAndInternalError(w, "database error during login", "error", err)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	metrics.RecordLogin("success")
	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", &user.ID, clientIP,
		map[string]any{"email": user.Email})

	flashSuccess(w, r, h.renderer, RouteRoot, fmt.Sprintf(msgWelcome, user.Name))
}

// Logout destroys the session and returns to the project list.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if userID := middleware.GetUserIDPtr(r); userID != nil {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", userID, middleware.ClientIP(r), nil)
		slog.Info("user logged out", "user_id", *userID)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}
