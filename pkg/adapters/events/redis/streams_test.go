package redis

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
)

func TestGetStreamKey(t *testing.T) {
	assert.Equal(t, "ytscope:events:task.events", getStreamKey(domain.TopicTaskEvents))
}

func TestDecodeMessage(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		event, err := decodeMessage(redis.XMessage{
			ID:     "1-0",
			Values: map[string]interface{}{"data": `{"id":"e1","type":"task.submitted","task_id":"t1"}`},
		})
		require.NoError(t, err)
		assert.Equal(t, "e1", event.ID)
		assert.Equal(t, domain.EventTypeTaskSubmitted, event.Type)
		assert.Equal(t, "t1", event.TaskID)
	})

	t.Run("missing data", func(t *testing.T) {
		_, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": "{"}})
		assert.Error(t, err)
	})
}

func TestNewStreamsEventBusValidation(t *testing.T) {
	_, err := NewStreamsEventBus(nil, "g", "c", zap.NewNop())
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = NewStreamsEventBus(client, "", "c", zap.NewNop())
	assert.Error(t, err)
}

func TestStreamsRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	bus, err := NewStreamsEventBus(client, "test-"+uuid.NewString(), "c1", zap.NewNop())
	require.NoError(t, err)
	defer bus.Close()

	topic := "test." + uuid.NewString()
	defer client.Del(context.Background(), getStreamKey(topic))

	var got atomic.Value
	require.NoError(t, bus.Subscribe(context.Background(), topic, func(ctx context.Context, e domain.Event) error {
		got.Store(e.TaskID)
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), topic, domain.Event{ID: "e1", Type: domain.EventTypeTaskSubmitted, TaskID: "t1"}))

	assert.Eventually(t, func() bool {
		v, _ := got.Load().(string)
		return v == "t1"
	}, 5*time.Second, 20*time.Millisecond)
}
