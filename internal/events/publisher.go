package events

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// AllEvents subscribes a handler to every event type.
const AllEvents = "*"

// LoggingPublisher writes each executor event at debug level and dispatches
// it to subscribers.
type LoggingPublisher struct {
	log    *logger.Logger
	subs   map[string][]subscriptionEntry
	nextID int
	mu     sync.RWMutex
}

// NewLoggingPublisher creates a publisher that logs through log, which may be nil.
func NewLoggingPublisher(log *logger.Logger) *LoggingPublisher {
	return &LoggingPublisher{
		log:  log,
		subs: make(map[string][]subscriptionEntry),
	}
}

// Publish logs the event and runs its handlers in subscription order.
// Handler failures are logged and never returned.
func (p *LoggingPublisher) Publish(ctx context.Context, event ports.Event) error {
	if p == nil {
		return nil
	}

	p.mu.RLock()
	handlers := append([]subscriptionEntry(nil), p.subs[event.Type]...)
	handlers = append(handlers, p.subs[AllEvents]...)
	p.mu.RUnlock()

	fields := map[string]any{"event_type": event.Type, "index": event.Index}
	if event.Host != "" {
		fields["host"] = event.Host
	}
	if event.Category != "" {
		fields["category"] = event.Category
	}
	if event.Message != "" {
		fields["detail"] = event.Message
	}
	p.log.WithFields(fields).Debug("executor event")

	for _, entry := range handlers {
		if entry.handler == nil {
			continue
		}
		if err := entry.handler(ctx, event); err != nil {
			p.log.WithFields(map[string]any{"event_type": event.Type}).Warn(err, "event handler failed")
		}
	}
	return nil
}

// Subscribe registers a handler for the provided event type, or AllEvents.
func (p *LoggingPublisher) Subscribe(eventType string, handler ports.EventHandler) (ports.Subscription, error) {
	if p == nil || handler == nil {
		return noopSubscription{}, nil
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[eventType] = append(p.subs[eventType], subscriptionEntry{id: id, handler: handler})
	p.mu.Unlock()

	return subscription{
		cancel: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			handlers := p.subs[eventType]
			for i, entry := range handlers {
				if entry.id == id {
					p.subs[eventType] = append(handlers[:i], handlers[i+1:]...)
					break
				}
			}
		},
	}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriptionEntry struct {
	id      int
	handler ports.EventHandler
}
