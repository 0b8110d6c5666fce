package audit

import (
	"context"
	"sync"
)

// Handler consumes one published audit event. Handlers run synchronously in
// the publishing goroutine; a handler that persists must manage its own
// transaction boundary.
type Handler func(ctx context.Context, evt Event)

// Bus is a concurrency-safe in-process dispatcher. Subscription happens at
// wire-up time; publishing fans the event out to every handler in order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus returns an empty dispatcher.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all future events.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish dispatches the event to every subscribed handler, synchronously
// relative to the caller.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
}
