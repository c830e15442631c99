package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/ytscope/pkg/domain"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	var a, b atomic.Int32
	ctx := context.Background()
	require.NoError(t, bus.Subscribe(ctx, domain.TopicTaskEvents, func(context.Context, domain.Event) error {
		a.Add(1)
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx, domain.TopicTaskEvents, func(context.Context, domain.Event) error {
		b.Add(1)
		return errors.New("ignored")
	}))

	require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, domain.Event{ID: "1"}))
	require.NoError(t, bus.Publish(ctx, "other.topic", domain.Event{ID: "2"}))

	assert.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, "t", func(context.Context, domain.Event) error { return nil }))
	require.NoError(t, bus.Subscribe(context.Background(), "t", func(context.Context, domain.Event) error { return nil }))
	assert.Equal(t, 2, bus.SubscriberCount("t"))

	cancel()
	assert.Eventually(t, func() bool { return bus.SubscriberCount("t") == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	var calls atomic.Int32
	require.NoError(t, bus.Subscribe(context.Background(), "t", func(context.Context, domain.Event) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, bus.Unsubscribe(context.Background(), "t"))
	require.NoError(t, bus.Publish(context.Background(), "t", domain.Event{}))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestClosedBusRejects(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), "t", domain.Event{}), ErrClosed)
	assert.ErrorIs(t, bus.Subscribe(context.Background(), "t", func(context.Context, domain.Event) error { return nil }), ErrClosed)
}

func TestHandlersSurvivePublisherCancel(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	seen := make(chan error, 1)
	require.NoError(t, bus.Subscribe(context.Background(), "t", func(ctx context.Context, _ domain.Event) error {
		time.Sleep(10 * time.Millisecond)
		seen <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, "t", domain.Event{}))
	cancel()

	select {
	case err := <-seen:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}
