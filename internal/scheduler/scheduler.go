// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic background jobs: the contact mail
// retry sweep and the event log purge.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named periodic task. Schedule uses the standard five-field
// cron syntax or a descriptor such as "@daily".
type Job struct {
	Name        string
	Description string
	Schedule    string
	Run         func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	LastError   string
	NextRun     time.Time
}

type registeredJob struct {
	Job
	entryID   cron.EntryID
	lastRun   time.Time
	lastError string
}

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]*registeredJob
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a scheduler. Each run is bounded by timeout; zero means
// five minutes.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*registeredJob),
		ctx:     ctx,
		stop:    cancel,
	}
}

// Add registers a job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("scheduler: job needs a name and a Run func")
	}
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for %s: %w", job.Schedule, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("scheduler: job %s already registered", job.Name)
	}

	rj := &registeredJob{Job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(rj) })
	if err != nil {
		return fmt.Errorf("scheduler: adding %s: %w", job.Name, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.stop()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs the named job immediately in the caller's goroutine.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	rj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %s", name)
	}
	return s.run(rj)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:        rj.Name,
			Description: rj.Description,
			Schedule:    rj.Schedule,
			LastRun:     rj.lastRun,
			LastError:   rj.lastError,
			NextRun:     s.cron.Entry(rj.entryID).Next,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) run(rj *registeredJob) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := rj.Run(ctx)

	s.mu.Lock()
	rj.lastRun = start
	rj.lastError = ""
	if err != nil {
		rj.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", rj.Name, "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Debug("scheduled job finished", "job", rj.Name, "duration", time.Since(start))
	return nil
}
