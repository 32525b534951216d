package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/event"
)

type namedEvent string

func (e namedEvent) Name() string { return string(e) }

type recorder struct {
	mu       sync.Mutex
	received []event.Event
}

func (r *recorder) handler(_ context.Context, e event.Event) error {
	r.mu.Lock()
	r.received = append(r.received, e)
	r.mu.Unlock()
	return nil
}

func TestBus_DeliversToSubscribers(t *testing.T) {
	b := event.NewBus()

	var r1, r2 recorder
	b.Subscribe("e1", r1.handler)
	b.Subscribe("e1", r2.handler)

	b.Publish(context.Background(), namedEvent("e1"))
	b.Publish(context.Background(), namedEvent("e1"))
	b.Stop()

	assert.Len(t, r1.received, 2)
	assert.Len(t, r2.received, 2)
}

func TestBus_IgnoresUnsubscribedEvents(t *testing.T) {
	b := event.NewBus()

	var r recorder
	b.Subscribe("e1", r.handler)

	b.Publish(context.Background(), namedEvent("e2"))
	b.Stop()

	assert.Empty(t, r.received)
}

func TestBus_SurvivesFailingAndPanickingHandlers(t *testing.T) {
	b := event.NewBus()

	b.Subscribe("e1", func(context.Context, event.Event) error {
		return errors.New("handler failed")
	})
	b.Subscribe("e1", func(context.Context, event.Event) error {
		panic("handler panicked")
	})

	var r recorder
	b.Subscribe("e1", r.handler)

	b.Publish(context.Background(), namedEvent("e1"))
	b.Stop()

	require.Len(t, r.received, 1, "a misbehaving handler must not affect others")
}

func TestBus_HandlerOutlivesCancelledPublisher(t *testing.T) {
	b := event.NewBus()

	done := make(chan error, 1)
	b.Subscribe("e1", func(ctx context.Context, _ event.Event) error {
		done <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b.Publish(ctx, namedEvent("e1"))
	b.Stop()

	require.NoError(t, <-done, "handler context must be detached from the publisher's")
}
