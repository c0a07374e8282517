// Package messaging wires domain events to their consumers: an in-process
// bus for local handlers and an outbox subscriber that persists published
// events for relay to EventBridge.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/events"

	"go.uber.org/zap"
)

// TopicAll subscribes a handler to every event type.
const TopicAll = "*"

// handlerTimeout bounds a single handler invocation so one stuck consumer
// cannot stall the publishing request.
const handlerTimeout = 30 * time.Second

// InProcessEventBus dispatches events synchronously to subscribed handlers.
// Handler failures are logged and do not stop the remaining handlers; the
// publish fails only when every handler failed.
type InProcessEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewInProcessEventBus creates a new in-process event bus
func NewInProcessEventBus(logger *zap.Logger) *InProcessEventBus {
	return &InProcessEventBus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Publish sends a single event to all matching handlers
func (b *InProcessEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	eventType := event.GetEventType()
	handlers := b.matchingHandlers(eventType)
	if len(handlers) == 0 {
		b.logger.Debug("No handlers subscribed for event type",
			zap.String("eventType", eventType),
		)
		return nil
	}

	var lastErr error
	succeeded := 0
	failed := 0

	for _, handler := range handlers {
		if !handler.CanHandle(eventType) {
			continue
		}

		handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		err := handler.Handle(handlerCtx, event)
		cancel()

		if err != nil {
			failed++
			lastErr = err
			b.logger.Error("Event handler failed",
				zap.String("eventType", eventType),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
		} else {
			succeeded++
		}
	}

	if failed > 0 && succeeded == 0 {
		return fmt.Errorf("all handlers failed for event %s: %w", eventType, lastErr)
	}
	return nil
}

// PublishBatch sends multiple events in order
func (b *InProcessEventBus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	var lastErr error
	failed := 0

	for _, event := range domainEvents {
		if err := b.Publish(ctx, event); err != nil {
			failed++
			lastErr = err
		}
	}

	if failed > 0 {
		return fmt.Errorf("batch publish had %d failures: %w", failed, lastErr)
	}
	return nil
}

// Subscribe registers a handler for an event type. TopicAll subscribes the
// handler to every event.
func (b *InProcessEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a handler from an event type
func (b *InProcessEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.handlers[eventType][:0]
	for _, h := range b.handlers[eventType] {
		if h != handler {
			remaining = append(remaining, h)
		}
	}

	if len(remaining) == 0 {
		delete(b.handlers, eventType)
	} else {
		b.handlers[eventType] = remaining
	}
	return nil
}

// matchingHandlers copies the handler lists for the type and the wildcard
// topic, so handlers run without the bus lock held.
func (b *InProcessEventBus) matchingHandlers(eventType string) []ports.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typed := b.handlers[eventType]
	wild := b.handlers[TopicAll]

	handlers := make([]ports.EventHandler, 0, len(typed)+len(wild))
	handlers = append(handlers, typed...)
	handlers = append(handlers, wild...)
	return handlers
}
