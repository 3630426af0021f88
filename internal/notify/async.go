package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"aip/internal/verification/models"
	"aip/internal/verification/ports"
)

// Async hands events to a background worker so request handlers never wait
// on the broker. Events are dropped, and counted, when the buffer is full.
type Async struct {
	next    ports.EventPublisher
	inbox   chan *models.Event
	logger  *slog.Logger
	dropped atomic.Int64
	failed  atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

func NewAsync(next ports.EventPublisher, buffer int, logger *slog.Logger) *Async {
	if buffer < 1 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		next:   next,
		inbox:  make(chan *models.Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish enqueues the event. It only fails when the worker has stopped.
func (a *Async) Publish(ctx context.Context, event *models.Event) error {
	select {
	case <-a.done:
		return context.Canceled
	default:
	}
	select {
	case a.inbox <- event:
	default:
		a.dropped.Add(1)
		a.logger.WarnContext(ctx, "verification event dropped, publish buffer full",
			"verification_id", event.RequestID,
			"event_type", event.Type,
		)
	}
	return nil
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already buffered.
func (a *Async) Run(ctx context.Context) error {
	defer a.closeOnce.Do(func() { close(a.done) })
	for {
		select {
		case event := <-a.inbox:
			a.deliver(ctx, event)
		case <-ctx.Done():
			a.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}
}

func (a *Async) drain(ctx context.Context) {
	for {
		select {
		case event := <-a.inbox:
			a.deliver(ctx, event)
		default:
			return
		}
	}
}

func (a *Async) deliver(ctx context.Context, event *models.Event) {
	if err := a.next.Publish(ctx, event); err != nil {
		a.failed.Add(1)
		a.logger.ErrorContext(ctx, "failed to deliver verification event",
			"verification_id", event.RequestID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

func (a *Async) Dropped() int64 { return a.dropped.Load() }
func (a *Async) Failed() int64  { return a.failed.Load() }
