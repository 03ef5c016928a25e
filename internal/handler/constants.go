// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the project list.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	// RouteRegister is the sign-up route.
	RouteRegister = "/register"
	// RouteLogin is the login route.
	RouteLogin = "/admin"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteAbout is the static about page.
	RouteAbout = "/about"
	// RouteContact is the contact form.
	RouteContact = "/contact"

	// RouteProject is the project detail prefix.
	RouteProject = "/project"
	// RouteNewProject is the project creation route.
	RouteNewProject = "/new-project"
	// RouteEditProject is the project edit prefix.
	RouteEditProject = "/edit-project"
	// RouteDeleteProject is the project deletion prefix.
	RouteDeleteProject = "/delete"

	// RouteProjectID is the project detail route pattern.
	RouteProjectID = RouteProject + RouteParamID
	// RouteEditProjectID is the project edit route pattern.
	RouteEditProjectID = RouteEditProject + RouteParamID
	// RouteDeleteProjectID is the project deletion route pattern.
	RouteDeleteProjectID = RouteDeleteProject + RouteParamID

	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteHealthLive is the liveness probe.
	RouteHealthLive = RouteHealth + "/live"
	// RouteHealthReady is the readiness probe.
	RouteHealthReady = RouteHealth + "/ready"
	// RouteMetrics exposes Prometheus metrics.
	RouteMetrics = "/metrics"
	// RouteStatic serves embedded assets.
	RouteStatic = "/static/*"
)

// Flash messages shown after a redirect.
const (
	msgAlreadyRegistered  = "You've already signed up with that email, log in instead!"
	msgInvalidCredentials = "Invalid email or password."
	msgMessageSent        = "Message sent! I will get back to you as soon as possible!"
	msgProjectCreated     = "Project created."
	msgProjectUpdated     = "Project updated."
	msgProjectDeleted     = "Project deleted."
	msgWelcome            = "Welcome, %s!"
	msgAccountLocked      = "Too many failed attempts. Try again in %s."
)

// Page template names.
const (
	pageIndex       = "index"
	pageProject     = "project"
	pageAbout       = "about"
	pageContact     = "contact"
	pageRegister    = "register"
	pageLogin       = "login"
	pageMakeProject = "make-project"
	pageError       = "error"
)
