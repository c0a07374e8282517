package messaging

import (
	"context"
	"fmt"

	"catgraph/application/ports"
	"catgraph/domain/events"

	"go.uber.org/zap"
)

// OutboxSubscriber persists events published on the in-process bus, so the
// outbox processor can relay them to EventBridge later. Events written
// inside a unit of work land in the store by the commit itself and must
// not be routed through this subscriber a second time; the wiring layer
// keeps those event types off its subscription list.
type OutboxSubscriber struct {
	eventStore ports.EventStore
	logger     *zap.Logger
}

// NewOutboxSubscriber creates a subscriber that writes events to the store
func NewOutboxSubscriber(eventStore ports.EventStore, logger *zap.Logger) *OutboxSubscriber {
	return &OutboxSubscriber{
		eventStore: eventStore,
		logger:     logger,
	}
}

// Handle stores the event for later relay
func (s *OutboxSubscriber) Handle(ctx context.Context, event events.DomainEvent) error {
	if err := s.eventStore.SaveEvents(ctx, []events.DomainEvent{event}); err != nil {
		return fmt.Errorf("failed to store event for outbox: %w", err)
	}

	s.logger.Debug("Event stored for outbox relay",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
	)
	return nil
}

// CanHandle accepts every event type; routing is decided at subscription
func (s *OutboxSubscriber) CanHandle(eventType string) bool {
	return true
}
