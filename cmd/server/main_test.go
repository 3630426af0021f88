package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aip/internal/notify"
	"aip/internal/verification/models"
	id "aip/pkg/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type stepFunc func(ctx context.Context) error

func (f stepFunc) Shutdown(ctx context.Context) error { return f(ctx) }

func TestShutdownDeliversEventsFromDrainingHandlers(t *testing.T) {
	sink := &recordingPublisher{}
	events := notify.NewAsync(sink, 8, nil)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// The signal context is already gone while the server drains.
	signalCtx, cancelSignal := context.WithCancel(context.Background())
	cancelSignal()

	eventsCtx, stopEvents := context.WithCancel(context.WithoutCancel(signalCtx))
	runDone := make(chan error, 1)
	go func() { runDone <- events.Run(eventsCtx) }()

	var order []string
	srv := stepFunc(func(ctx context.Context) error {
		order = append(order, "http")
		// A handler completing during Shutdown publishes its committed event.
		return events.Publish(ctx, &models.Event{ID: id.NewEventID(), RequestID: id.NewRequestID(), Type: models.EventApproved})
	})
	workflow := stepFunc(func(context.Context) error {
		order = append(order, "workflow")
		return nil
	})

	shutdown(context.Background(), log, srv, workflow, func() {
		order = append(order, "events")
		stopEvents()
	})

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("event worker did not stop")
	}
	assert.Equal(t, []string{"http", "workflow", "events"}, order)
	require.Equal(t, 1, sink.count())
	assert.Zero(t, events.Dropped())
}
