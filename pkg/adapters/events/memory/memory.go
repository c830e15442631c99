package memory

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("event bus closed")

// InMemoryEventBus implements EventBus with in-process fan-out. Handlers run
// asynchronously, one goroutine per delivery.
type InMemoryEventBus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[string]map[uint64]ports.EventHandler
	nextID      uint64
	closed      bool
	wg          sync.WaitGroup
}

var _ ports.EventBus = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		logger:      logger,
		subscribers: make(map[string]map[uint64]ports.EventHandler),
	}
}

// Publish delivers event to every subscriber of topic
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]ports.EventHandler, 0, len(e.subscribers[topic]))
	for _, h := range e.subscribers[topic] {
		handlers = append(handlers, h)
	}
	e.wg.Add(len(handlers))
	e.mu.RUnlock()

	// Handlers outlive the publisher's request
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h ports.EventHandler) {
			defer e.wg.Done()
			if err := h(ctx, event); err != nil {
				e.logger.Warn("event handler failed",
					zap.String("topic", topic),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}
		}(handler)
	}

	return nil
}

// Subscribe registers handler until ctx is done or the topic is unsubscribed
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[uint64]ports.EventHandler)
	}
	e.nextID++
	id := e.nextID
	e.subscribers[topic][id] = handler
	e.mu.Unlock()

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			e.remove(topic, id)
		}()
	}

	return nil
}

// Unsubscribe removes all subscriptions from a topic
func (e *InMemoryEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers, topic)
	return nil
}

// Close drops all subscribers and waits for in-flight handlers
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	e.closed = true
	e.subscribers = make(map[string]map[uint64]ports.EventHandler)
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// SubscriberCount returns the number of live handlers on topic
func (e *InMemoryEventBus) SubscriberCount(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[topic])
}

func (e *InMemoryEventBus) remove(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if subs, ok := e.subscribers[topic]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(e.subscribers, topic)
		}
	}
}
