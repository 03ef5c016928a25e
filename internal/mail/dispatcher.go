// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mail

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/metrics"
	"github.com/olegiv/folio-go/internal/store"
)

// Delivery defaults.
const (
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = time.Minute
	DefaultMaxBackoff     = time.Hour
	DefaultSendTimeout    = 30 * time.Second
	DefaultLease          = 5 * time.Minute
	DefaultQueueSize      = 100
)

// Config holds dispatcher configuration.
type Config struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	SendTimeout    time.Duration
	// Lease is how long a claimed delivery is hidden from other workers.
	Lease time.Duration
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        2,
		QueueSize:      DefaultQueueSize,
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		SendTimeout:    DefaultSendTimeout,
		Lease:          DefaultLease,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.Lease <= 0 {
		c.Lease = d.Lease
	}
	return c
}

// Dispatcher delivers persisted contact messages in the background.
type Dispatcher struct {
	db       *store.DB
	sender   Sender
	operator string
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time

	queue   chan int64
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewDispatcher creates a dispatcher that relays to operator using sender.
func NewDispatcher(db *store.DB, sender Sender, operator string, logger *slog.Logger, cfg Config) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Dispatcher{
		db:       db,
		sender:   sender,
		operator: operator,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		queue:    make(chan int64, cfg.QueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting mail dispatcher", "workers", d.cfg.Workers)

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the workers and waits for in-flight sends to finish.
// Deliveries still queued stay pending in the database.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping mail dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("mail dispatcher stopped")
}

// Running reports whether workers are active.
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Enqueue schedules a delivery for immediate processing. It never blocks:
// when the queue is full or the dispatcher is stopped the delivery is left
// for RetryDue.
func (d *Dispatcher) Enqueue(deliveryID int64) {
	if !d.Running() {
		d.logger.Debug("mail dispatcher not running, delivery left pending", "delivery_id", deliveryID)
		return
	}
	select {
	case d.queue <- deliveryID:
	default:
		d.logger.Warn("mail queue full, delivery left pending", "delivery_id", deliveryID)
	}
}

// RetryDue queues every pending delivery whose retry time has passed and
// returns how many were queued.
func (d *Dispatcher) RetryDue(ctx context.Context) (int, error) {
	ids, err := d.db.Queries().ListDueMailDeliveries(ctx, d.now().Unix(), int64(d.cfg.QueueSize))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		d.Enqueue(id)
	}
	if len(ids) > 0 {
		d.logger.Info("queued due mail deliveries", "count", len(ids))
	}
	return len(ids), nil
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("mail worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			d.logger.Debug("mail worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			d.logger.Debug("mail worker context cancelled", "worker_id", id)
			return
		case deliveryID := <-d.queue:
			if err := d.Process(ctx, deliveryID); err != nil {
				d.logger.Error("mail delivery processing failed",
					"error", err,
					"worker_id", id,
					"delivery_id", deliveryID)
			}
		}
	}
}

// Process claims and attempts one delivery. A delivery that is not due or
// already claimed elsewhere is skipped without error.
func (d *Dispatcher) Process(ctx context.Context, deliveryID int64) error {
	q := d.db.Queries()
	now := d.now()

	claimed, err := q.ClaimMailDelivery(ctx, deliveryID, now.Unix(), now.Add(d.cfg.Lease).Unix())
	if err != nil {
		return err
	}
	if !claimed {
		d.logger.Debug("mail delivery not claimable", "delivery_id", deliveryID)
		return nil
	}

	delivery, err := q.GetMailDelivery(ctx, deliveryID)
	if err != nil {
		return err
	}
	contact, err := q.GetContact(ctx, delivery.ContactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return q.MarkMailDeliveryDead(ctx, deliveryID, "contact not found")
		}
		return err
	}

	msg := ComposeContact(contact, d.operator)

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	start := time.Now()
	sendErr := d.sender.Send(sendCtx, msg)
	cancel()
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())

	if sendErr == nil {
		if err := q.MarkMailDeliverySent(ctx, deliveryID); err != nil {
			return err
		}
		metrics.RecordMailDelivery("sent")
		d.logger.Info("contact mail delivered",
			"delivery_id", deliveryID,
			"reference", contact.Reference,
			"attempt", delivery.Attempts+1)
		return nil
	}

	attempts := delivery.Attempts + 1
	if attempts >= d.cfg.MaxAttempts {
		if err := q.MarkMailDeliveryDead(ctx, deliveryID, sendErr.Error()); err != nil {
			return err
		}
		metrics.RecordMailDelivery("dead")
		d.logger.Warn("contact mail delivery failed permanently",
			"category", "mail",
			"error", sendErr,
			"delivery_id", deliveryID,
			"reference", contact.Reference,
			"attempts", attempts)
		return nil
	}

	backoff := d.backoff(attempts)
	if err := q.MarkMailDeliveryRetry(ctx, deliveryID, sendErr.Error(), now.Add(backoff).Unix()); err != nil {
		return err
	}
	metrics.RecordMailDelivery("retry")
	d.logger.Warn("contact mail delivery failed, retry scheduled",
		"category", "mail",
		"error", sendErr,
		"delivery_id", deliveryID,
		"attempt", attempts,
		"retry_in", backoff)
	return nil
}

// backoff returns InitialBackoff * 2^(attempt-1), capped at MaxBackoff.
func (d *Dispatcher) backoff(attempt int64) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	b := time.Duration(float64(d.cfg.InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if b > d.cfg.MaxBackoff || b <= 0 {
		b = d.cfg.MaxBackoff
	}
	return b
}
