package memory

import (
	"context"
	"sync"

	"catgraph/domain/events"
)

// EventStore is an in-memory ports.EventStore. Events append per aggregate
// in arrival order, which matches the timestamp ordering the DynamoDB
// store gives back.
type EventStore struct {
	mu          sync.RWMutex
	byAggregate map[string][]events.DomainEvent
	ordered     []events.DomainEvent
}

// NewEventStore creates an empty in-memory event store
func NewEventStore() *EventStore {
	return &EventStore{
		byAggregate: make(map[string][]events.DomainEvent),
	}
}

// SaveEvents persists domain events
func (s *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range domainEvents {
		s.byAggregate[event.GetAggregateID()] = append(s.byAggregate[event.GetAggregateID()], event)
		s.ordered = append(s.ordered, event)
	}
	return nil
}

// GetEvents retrieves events for an aggregate in arrival order
func (s *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byAggregate[aggregateID]
	result := make([]events.DomainEvent, len(stored))
	copy(result, stored)
	return result, nil
}

// GetEventsByType retrieves the most recent events of a type, newest first
func (s *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]events.DomainEvent, 0, limit)
	for i := len(s.ordered) - 1; i >= 0; i-- {
		if s.ordered[i].GetEventType() != eventType {
			continue
		}
		result = append(result, s.ordered[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// GetEventsAfter retrieves events for an aggregate past a version
func (s *EventStore) GetEventsAfter(ctx context.Context, aggregateID string, version int) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []events.DomainEvent
	for _, event := range s.byAggregate[aggregateID] {
		if event.GetVersion() > version {
			result = append(result, event)
		}
	}
	return result, nil
}

// DeleteEvents removes all events for an aggregate
func (s *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	return s.DeleteEventsBatch(ctx, []string{aggregateID})
}

// DeleteEventsBatch removes all events for multiple aggregates
func (s *EventStore) DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]bool, len(aggregateIDs))
	for _, id := range aggregateIDs {
		doomed[id] = true
		delete(s.byAggregate, id)
	}

	kept := s.ordered[:0]
	for _, event := range s.ordered {
		if !doomed[event.GetAggregateID()] {
			kept = append(kept, event)
		}
	}
	s.ordered = kept
	return nil
}
