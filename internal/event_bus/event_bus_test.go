package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishRunsHandlersInOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []int
	for i := 1; i <= 5; i++ {
		i := i
		bus.Subscribe("test", func(e Event) error {
			calls = append(calls, i)
			return nil
		})
	}

	err := bus.Publish(NewEvent(context.Background(), "test", nil))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	count := 0
	unsubscribe := bus.Subscribe("test", func(e Event) error {
		count++
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), "test", nil)))
	unsubscribe()
	require.NoError(t, bus.Publish(NewEvent(context.Background(), "test", nil)))

	assert.Equal(t, 1, count)
}

func TestSubscribeTyped(t *testing.T) {
	bus := NewEventBus()
	var received []ScheduleEventChanged
	SubscribeTyped[ScheduleEventChanged](bus, ScheduleEventCreated, func(e EventT[ScheduleEventChanged]) error {
		received = append(received, e.Data)
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), ScheduleEventCreated, ScheduleEventChanged{Id: "a"})))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), ScheduleEventCreated, "not a payload")))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), ScheduleEventDeleted, ScheduleEventChanged{Id: "b"})))

	require.Len(t, received, 1)
	assert.Equal(t, "a", received[0].Id)
}

func TestEventBus_CollectsErrorsAndPanics(t *testing.T) {
	bus := NewEventBus()
	failure := errors.New("boom")
	ran := false
	bus.Subscribe("test", func(e Event) error { return failure })
	bus.Subscribe("test", func(e Event) error { panic("oops") })
	bus.Subscribe("test", func(e Event) error {
		ran = true
		return nil
	})

	err := bus.Publish(NewEvent(context.Background(), "test", nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, ran)
}

func TestEventBus_CancelledContext(t *testing.T) {
	bus := NewEventBus()
	called := false
	bus.Subscribe("test", func(e Event) error {
		called = true
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(NewEvent(ctx, "test", nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
