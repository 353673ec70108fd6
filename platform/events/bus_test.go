package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishReachesOnlyMatchingHandlers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var hits atomic.Int32
	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, event Event) error {
		hits.Add(1)
		return nil
	}))
	bus.Subscribe("b", HandlerFunc(func(ctx context.Context, event Event) error {
		hits.Add(100)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "a"})
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "a"})
	bus.Wait()

	assert.Equal(t, int32(2), hits.Load())
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	boom := errors.New("boom")

	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, event Event) error { return boom }))
	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, event Event) error { return nil }))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var reached atomic.Bool

	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, event Event) error { panic("bad handler") }))
	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, event Event) error {
		reached.Store(true)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "a"})
	bus.Wait()

	assert.True(t, reached.Load())
}
