// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	// result: sent, retry, dead
	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_mail_deliveries_total",
			Help: "Contact mail delivery attempts by result",
		},
		[]string{"result"},
	)

	MailSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_mail_send_duration_seconds",
			Help:    "SMTP send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	ContactSubmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_contact_submissions_total",
			Help: "Contact messages stored",
		},
	)

	// result: success, failure, locked
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// action: create, update, delete
	ProjectChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_project_changes_total",
			Help: "Project post changes by action",
		},
		[]string{"action"},
	)

	AccessDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_access_denied_total",
			Help: "Requests rejected by the admin guard",
		},
	)
)

// RecordHTTPRequest observes one HTTP request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// RecordMailDelivery counts one delivery attempt outcome.
func RecordMailDelivery(result string) {
	MailDeliveries.WithLabelValues(result).Inc()
}

// RecordLogin counts one login attempt outcome.
func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// RecordProjectChange counts one project mutation.
func RecordProjectChange(action string) {
	ProjectChanges.WithLabelValues(action).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
