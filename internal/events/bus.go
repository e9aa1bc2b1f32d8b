package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler consumes a published event. Returned errors are logged.
type Handler func(ctx context.Context, e Event) error

// Bus delivers events to subscribers on a single dispatcher goroutine.
// Publishing never blocks: when the buffer is full the event is dropped and
// a warning logged. The events table remains the record of what happened.
type Bus struct {
	queue chan Event

	mu       sync.RWMutex
	handlers []Handler
}

// NewBus returns a bus buffering up to size undelivered events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{queue: make(chan Event, size)}
}

// Subscribe registers h for every subsequent event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish queues events for delivery. A nil bus discards them.
func (b *Bus) Publish(events ...Event) {
	if b == nil {
		return
	}
	for _, e := range events {
		select {
		case b.queue <- e:
		default:
			slog.Warn("event bus full, dropping event", "event", e.ID, "type", e.Type, "loan", e.LoanID)
		}
	}
}

// Run dispatches queued events until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.dispatch(ctx, e)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := safeHandle(ctx, h, e); err != nil {
			slog.Error("event handler failed", "event", e.ID, "type", e.Type, "error", err)
		}
	}
}

func safeHandle(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, e)
}
