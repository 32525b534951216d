package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	maxInFlight    = 1024
	handlerTimeout = 15 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus is an in-memory event bus. Handlers run asynchronously with a bounded
// number in flight; Stop drains them.
type Bus struct {
	slots chan struct{}
	wg    sync.WaitGroup

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{
		slots:    make(chan struct{}, maxInFlight),
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for events with the given name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], h)
	b.mu.Unlock()
}

// Publish dispatches e to every subscribed handler. Each handler runs in its
// own goroutine; a handler error or panic is logged, never propagated to the
// publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := b.handlers[e.Name()]
	b.mu.RUnlock()

	for _, h := range hs {
		b.wg.Add(1)
		b.slots <- struct{}{}

		go b.run(ctx, h, e)
	}
}

func (b *Bus) run(ctx context.Context, h Handler, e Event) {
	// The handler outlives the publishing request, so detach from its
	// cancellation but keep its values.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event: handler panic",
				"event", e.Name(),
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}

		cancel()
		<-b.slots
		b.wg.Done()
	}()

	if err := h(ctx, e); err != nil {
		slog.ErrorContext(ctx, "event: handle event failed",
			"event", e.Name(),
			"error", err,
		)
	}
}

// Stop waits for all in-flight handlers to finish.
func (b *Bus) Stop() {
	b.wg.Wait()
}
