// Package event is an in-process publish/subscribe bus. Services publish
// domain events ("order.created") without knowing who listens; the kernel
// wires listeners such as the admin websocket feed.
package event

import (
	"context"
	"sync"

	"github.com/humanebio/storefront/pkg/logger"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload interface{})

// Publisher is what services depend on.
type Publisher interface {
	Fire(ctx context.Context, name string, payload interface{})
}

// Bus dispatches named events to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers handler for name.
func (b *Bus) Listen(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *Bus) snapshot(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}

// Fire runs every listener of name synchronously. A panicking listener is
// logged and does not stop the others or reach the publisher.
func (b *Bus) Fire(ctx context.Context, name string, payload interface{}) {
	for _, h := range b.snapshot(name) {
		b.call(ctx, name, h, payload)
	}
}

// FireAsync runs every listener in its own goroutine and returns at once.
func (b *Bus) FireAsync(ctx context.Context, name string, payload interface{}) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.snapshot(name) {
		go b.call(ctx, name, h, payload)
	}
}

func (b *Bus) call(ctx context.Context, name string, h Handler, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", name, "panic", rec)
		}
	}()
	h(ctx, payload)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Fire(context.Context, string, interface{}) {}
