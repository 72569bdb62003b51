package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/tableflow/internal/logger"
)

// Handler processes a dispatched event. Returned errors are logged and do not
// stop delivery to the remaining handlers.
type Handler func(ctx context.Context, ev Event) error

// Subscription represents a registered handler. Callers invoke Unsubscribe
// to stop receiving events.
type Subscription interface {
	Unsubscribe()
}

type scope int

const (
	scopeTable scope = iota
	scopeDocument
)

// Bus delivers table events synchronously in registration order. Table-scope
// handlers see every event; document-scope handlers only see bubbling ones.
type Bus struct {
	logger *logger.Logger
	subs   map[string][]subscriptionEntry
	nextID int
	mu     sync.RWMutex
}

// NewBus creates an event bus that logs handler failures with log.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		logger: log,
		subs:   make(map[string][]subscriptionEntry),
	}
}

// Subscribe registers a table-scope handler for the named event.
func (b *Bus) Subscribe(name string, handler Handler) Subscription {
	return b.subscribe(name, scopeTable, handler)
}

// SubscribeDocument registers a document-scope handler. It only receives
// bubbling events.
func (b *Bus) SubscribeDocument(name string, handler Handler) Subscription {
	return b.subscribe(name, scopeDocument, handler)
}

func (b *Bus) subscribe(name string, sc scope, handler Handler) Subscription {
	if b == nil || handler == nil {
		return noopSubscription{}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscriptionEntry{id: id, scope: sc, handler: handler})
	b.mu.Unlock()

	return &subscription{
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			handlers := b.subs[name]
			for i, entry := range handlers {
				if entry.id == id {
					b.subs[name] = append(handlers[:i:i], handlers[i+1:]...)
					break
				}
			}
		},
	}
}

// Dispatch delivers ev and returns the event as delivered, with its EventID
// filled in when it was empty.
func (b *Bus) Dispatch(ctx context.Context, ev Event) Event {
	if b == nil {
		return ev
	}
	if ev.Detail.EventID == "" {
		ev.Detail.EventID = uuid.NewString()
	}

	b.mu.RLock()
	handlers := append([]subscriptionEntry(nil), b.subs[ev.Name]...)
	b.mu.RUnlock()

	for _, entry := range handlers {
		if entry.scope == scopeDocument && !ev.Bubbles {
			continue
		}
		if err := b.deliver(ctx, entry.handler, ev); err != nil {
			b.logger.WithFields(map[string]any{
				"event":    ev.Name,
				"event_id": ev.Detail.EventID,
			}).Error(err, "event handler failed")
		}
	}
	return ev
}

// Count returns the number of handlers registered for name.
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Reset drops every subscription.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscriptionEntry)
}

func (b *Bus) deliver(ctx context.Context, handler Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, ev)
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type subscriptionEntry struct {
	id      int
	scope   scope
	handler Handler
}

// Subscriptions collects subscriptions so a plugin can drop all of them at
// once on destroy.
type Subscriptions []Subscription

// Add appends sub.
func (s *Subscriptions) Add(sub Subscription) {
	*s = append(*s, sub)
}

// UnsubscribeAll cancels every collected subscription.
func (s *Subscriptions) UnsubscribeAll() {
	for _, sub := range *s {
		sub.Unsubscribe()
	}
	*s = nil
}
