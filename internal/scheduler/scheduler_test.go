// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/testutil"
)

func TestAddValidation(t *testing.T) {
	s := New(testutil.TestLoggerSilent(), 0)
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		job  Job
	}{
		{"missing name", Job{Schedule: "* * * * *", Run: noop}},
		{"missing run", Job{Name: "a", Schedule: "* * * * *"}},
		{"bad schedule", Job{Name: "a", Schedule: "every minute", Run: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Add(tt.job); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := s.Add(Job{Name: "a", Schedule: "@daily", Run: noop}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(Job{Name: "a", Schedule: "@daily", Run: noop}); err == nil {
		t.Error("expected duplicate name error")
	}
}

func TestTriggerRecordsOutcome(t *testing.T) {
	s := New(testutil.TestLoggerSilent(), time.Second)
	calls := 0
	fail := errors.New("boom")

	_ = s.Add(Job{Name: "flaky", Schedule: "@hourly", Run: func(context.Context) error {
		calls++
		if calls == 1 {
			return fail
		}
		return nil
	}})

	if err := s.Trigger("flaky"); !errors.Is(err, fail) {
		t.Fatalf("first Trigger = %v, want %v", err, fail)
	}
	if got := s.Jobs()[0].LastError; got != "boom" {
		t.Errorf("LastError = %q, want boom", got)
	}

	if err := s.Trigger("flaky"); err != nil {
		t.Fatalf("second Trigger: %v", err)
	}
	info := s.Jobs()[0]
	if info.LastError != "" || info.LastRun.IsZero() {
		t.Errorf("job info after success = %+v", info)
	}

	if err := s.Trigger("missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestStartStop(t *testing.T) {
	s := New(testutil.TestLoggerSilent(), 0)
	_ = s.Add(Job{Name: "tick", Schedule: "@every 1h", Run: func(context.Context) error { return nil }})
	s.Start()

	if next := s.Jobs()[0].NextRun; next.IsZero() {
		t.Error("NextRun should be set once started")
	}
	s.Stop()
}

type countingRetrier struct {
	calls int
	err   error
}

func (r *countingRetrier) RetryDue(context.Context) (int, error) {
	r.calls++
	return 2, r.err
}

func TestMailRetryJob(t *testing.T) {
	r := &countingRetrier{}
	job := MailRetryJob(r, testutil.TestLoggerSilent())
	if job.Schedule != "* * * * *" {
		t.Errorf("schedule = %q, want every minute", job.Schedule)
	}

	s := New(testutil.TestLoggerSilent(), time.Second)
	if err := s.Add(job); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Trigger(JobMailRetry); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if r.calls != 1 {
		t.Errorf("RetryDue calls = %d, want 1", r.calls)
	}

	r.err = errors.New("db down")
	if err := s.Trigger(JobMailRetry); err == nil {
		t.Error("expected sweep error to surface")
	}
}

func TestEventPurgeJob(t *testing.T) {
	db := testutil.TestDB(t)
	events := service.NewEventService(db)
	if err := events.LogEvent(t.Context(), "info", "system", "fresh", nil, "", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	s := New(testutil.TestLoggerSilent(), time.Second)
	if err := s.Add(EventPurgeJob(events, 90, testutil.TestLoggerSilent())); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Trigger(JobEventPurge); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	n, err := db.Queries().CountEvents(t.Context())
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("events = %d, want the fresh one kept", n)
	}
}
