// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
)

// Job names.
const (
	JobMailRetry  = "mail_retry"
	JobEventPurge = "event_purge"
)

// MailRetrier re-queues contact mail deliveries whose retry time has passed.
type MailRetrier interface {
	RetryDue(ctx context.Context) (int, error)
}

// EventPurger deletes event log entries older than a number of days.
type EventPurger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// MailRetryJob sweeps due deliveries every minute.
func MailRetryJob(r MailRetrier, logger *slog.Logger) Job {
	return Job{
		Name:        JobMailRetry,
		Description: "Re-queue contact mail deliveries that are due for another attempt",
		Schedule:    "* * * * *",
		Run: func(ctx context.Context) error {
			n, err := r.RetryDue(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("re-queued mail deliveries", "count", n)
			}
			return nil
		},
	}
}

// EventPurgeJob removes events older than retentionDays every night.
func EventPurgeJob(p EventPurger, retentionDays int, logger *slog.Logger) Job {
	return Job{
		Name:        JobEventPurge,
		Description: "Delete event log entries past the retention period",
		Schedule:    "30 3 * * *",
		Run: func(ctx context.Context) error {
			n, err := p.PurgeOlderThan(ctx, retentionDays)
			if err != nil {
				return err
			}
			logger.Info("purged old events", "count", n, "retention_days", retentionDays)
			return nil
		},
	}
}
