package eventing

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// EventHandler consumes one published event.
type EventHandler func(ctx context.Context, event any) error

// EventBus carries domain events between packages inside the process, keyed
// by the event's concrete type name. The ingestion pipeline publishes, the
// alert engine subscribes; neither imports the other.
type EventBus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(eventType string, handler EventHandler)
}

var (
	// ErrNilEvent rejects a Publish of a nil event.
	ErrNilEvent = errors.New("eventbus: nil event")
	// ErrInvalidEventType reports an event whose type could not be resolved,
	// or a payload a typed handler could not unwrap.
	ErrInvalidEventType = errors.New("eventbus: invalid event type")
)

// InMemoryBus delivers events synchronously on the publisher's goroutine.
// Delivery is best-effort fan-out: every handler runs even when an earlier
// one fails, and Publish reports the first failure.
type InMemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]EventHandler
}

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]EventHandler)}
}

// Publish fans the event out to every handler subscribed to its type.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}
	eventType := EventType(event)
	if eventType == "" {
		return ErrInvalidEventType
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subs[eventType]...)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe registers a handler under an event type name. Empty types and
// nil handlers are ignored.
func (b *InMemoryBus) Subscribe(eventType string, handler EventHandler) {
	if eventType == "" || handler == nil {
		return
	}
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], handler)
	b.mu.Unlock()
}

// Subscribe registers a typed handler on the bus. Events published as T or
// *T are unwrapped before the handler runs, so subscribers keep a plain
// typed signature instead of asserting on any themselves.
func Subscribe[T any](bus EventBus, handler func(ctx context.Context, event T) error) {
	if bus == nil || handler == nil {
		return
	}
	bus.Subscribe(EventTypeOf[T](), func(ctx context.Context, event any) error {
		switch evt := event.(type) {
		case T:
			return handler(ctx, evt)
		case *T:
			if evt == nil {
				return ErrInvalidEventType
			}
			return handler(ctx, *evt)
		default:
			return ErrInvalidEventType
		}
	})
}

// EventType names an event instance by its concrete type, with pointers
// collapsed onto their element type so T and *T share subscribers.
func EventType(event any) string {
	if event == nil {
		return ""
	}
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// EventTypeOf names an event type without needing an instance.
func EventTypeOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
