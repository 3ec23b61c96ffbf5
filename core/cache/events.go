package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
)

// EventType names a cache lifecycle event.
type EventType string

const (
	EventHit            EventType = "cache.hit"
	EventMiss           EventType = "cache.miss"
	EventStale          EventType = "cache.stale"
	EventRefreshStart   EventType = "refresh.start"
	EventRefreshSuccess EventType = "refresh.success"
	EventRefreshFailed  EventType = "refresh.failed"
)

// Event is published on the bus for every lookup and refresh.
type Event struct {
	Type      EventType `json:"type"`               // The type of event (e.g., 'cache.hit').
	Timestamp int64     `json:"timestamp"`          // When the event occurred (Unix milliseconds).
	Cache     string    `json:"cache"`              // Name of the cache that emitted it.
	Key       string    `json:"key"`                // Snapshot key involved.
	Age       *int64    `json:"age,omitempty"`      // Age of the stored envelope in seconds, on hit and stale.
	Records   *int      `json:"records,omitempty"`  // Size of the refreshed payload, when it is a collection.
	Error     *string   `json:"error,omitempty"`    // Error message if the refresh failed.
	Duration  *int64    `json:"duration,omitempty"` // Duration of the refresh in milliseconds.
}

// EventCallback handles a published event.
type EventCallback func(ctx context.Context, event Event) error

// SubscriptionInfo describes one registered callback.
type SubscriptionInfo struct {
	ID          string    `json:"id"`
	Event       EventType `json:"event"`
	Label       *string   `json:"label,omitempty"`
	Unsubscribe func()    `json:"-"`
}

// EventBus fans cache events out to subscribers. One bus is typically shared
// by every cache in the process.
type EventBus struct {
	bus           *events.TypedEventBus[Event]
	subscriptions map[string]*SubscriptionInfo
	subMu         sync.RWMutex
}

// NewEventBus creates a bus with the default go-events configuration.
func NewEventBus() (*EventBus, error) {
	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	return &EventBus{
		bus:           bus,
		subscriptions: make(map[string]*SubscriptionInfo),
	}, nil
}

// Subscribe registers a callback for one event type and returns its id.
func (b *EventBus) Subscribe(event EventType, label string, callback EventCallback) string {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	unsubscribe := b.bus.Subscribe(string(event), callback)
	id := uuid.New().String()

	info := &SubscriptionInfo{ID: id, Event: event, Unsubscribe: unsubscribe}
	if label != "" {
		info.Label = &label
	}
	b.subscriptions[id] = info
	return id
}

// SubscribeAll registers the same callback for every cache event type.
func (b *EventBus) SubscribeAll(label string, callback EventCallback) []string {
	types := []EventType{EventHit, EventMiss, EventStale, EventRefreshStart, EventRefreshSuccess, EventRefreshFailed}
	ids := make([]string, 0, len(types))
	for _, t := range types {
		ids = append(ids, b.Subscribe(t, label, callback))
	}
	return ids
}

// Unsubscribe removes a subscription by its id.
func (b *EventBus) Unsubscribe(id string) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if info, ok := b.subscriptions[id]; ok {
		info.Unsubscribe()
		delete(b.subscriptions, id)
	}
}

// Subscriptions returns all active subscriptions.
func (b *EventBus) Subscriptions() []SubscriptionInfo {
	b.subMu.RLock()
	defer b.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}

func (b *EventBus) emit(event Event) {
	if b != nil {
		b.bus.Emit(string(event.Type), event)
	}
}

func createEvent(eventType EventType, cacheName, key string, startTime time.Time, err error) Event {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var errStr *string
	if err != nil {
		s := err.Error()
		errStr = &s
	}

	return Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Cache:     cacheName,
		Key:       key,
		Error:     errStr,
		Duration:  duration,
	}
}
