// Package worker moves ledger change events off the request path.
package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"fincontrol/internal/core"
	"fincontrol/internal/log"
)

// ErrQueueFull is returned by Notify when the buffer cannot take the event.
var ErrQueueFull = errors.New("event queue full")

// Publisher delivers a change event to the outside world.
type Publisher interface {
	Publish(ctx context.Context, ev core.ChangeEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev core.ChangeEvent) error

func (f PublisherFunc) Publish(ctx context.Context, ev core.ChangeEvent) error { return f(ctx, ev) }

// Config tunes an EventWorker.
type Config struct {
	QueueSize    int
	Retries      int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		QueueSize:    256,
		Retries:      3,
		RetryDelay:   500 * time.Millisecond,
		DrainTimeout: 5 * time.Second,
	}
}

// Stats counts what happened to queued events.
type Stats struct {
	Published int64
	Failed    int64
	Dropped   int64
}

// EventWorker buffers change events and publishes them from its own
// goroutine so a slow broker never delays a ledger mutation.
type EventWorker struct {
	publisher Publisher
	queue     chan core.ChangeEvent
	cfg       Config
	logger    *log.Logger

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewEventWorker(p Publisher, cfg Config, logger *log.Logger) *EventWorker {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		publisher: p,
		queue:     make(chan core.ChangeEvent, cfg.QueueSize),
		cfg:       cfg,
		logger:    logger.WithComponent(log.ComponentAMQP),
	}
}

// Notify queues ev without blocking. It satisfies the ledger's notifier
// port.
func (w *EventWorker) Notify(ctx context.Context, ev core.ChangeEvent) error {
	select {
	case w.queue <- ev:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run publishes queued events until ctx is done, then spends at most
// DrainTimeout on whatever is still buffered.
func (w *EventWorker) Run(ctx context.Context) error {
	w.logger.Info("Event worker started", "queue_size", w.cfg.QueueSize)
	for {
		select {
		case ev := <-w.queue:
			w.deliver(ctx, ev)
		case <-ctx.Done():
			w.drain()
			return nil
		}
	}
}

func (w *EventWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.DrainTimeout)
	defer cancel()

	pending := len(w.queue)
	for {
		select {
		case ev := <-w.queue:
			w.deliver(ctx, ev)
		default:
			s := w.Stats()
			w.logger.Info("Event worker stopped",
				"drained", pending,
				"published", s.Published,
				"failed", s.Failed,
				"dropped", s.Dropped)
			return
		}
	}
}

// deliver publishes ev, retrying transient failures with a linear backoff.
func (w *EventWorker) deliver(ctx context.Context, ev core.ChangeEvent) {
	var err error
	for attempt := 0; attempt <= w.cfg.Retries; attempt++ {
		if attempt > 0 && !sleep(ctx, time.Duration(attempt)*w.cfg.RetryDelay) {
			break
		}
		if err = w.publisher.Publish(ctx, ev); err == nil {
			w.published.Add(1)
			return
		}
		if ctx.Err() != nil {
			break
		}
	}

	w.failed.Add(1)
	w.logger.Warn("Failed to publish change event",
		log.FieldOperation, ev.Op,
		log.FieldKind, ev.Kind,
		log.FieldRecordID, ev.ID,
		log.FieldError, err)
}

// Stats returns current counters.
func (w *EventWorker) Stats() Stats {
	return Stats{
		Published: w.published.Load(),
		Failed:    w.failed.Load(),
		Dropped:   w.dropped.Load(),
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
