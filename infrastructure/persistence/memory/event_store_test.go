package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
)

func TestEventStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	id := testID(t, 1)
	created := events.NewCategoryCreated(id, "Electronics", valueobjects.CategoryID{}, time.Now())
	relabeled := events.NewCategoryRelabeled(id, "Electronics", "Hardware", time.Now())
	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{created, relabeled}))

	stored, err := store.GetEvents(ctx, id.String())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "category.created", stored[0].GetEventType())
	assert.Equal(t, "category.relabeled", stored[1].GetEventType())

	none, err := store.GetEvents(ctx, testID(t, 9).String())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventStoreGetEventsByTypeNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	for i := 1; i <= 3; i++ {
		event := events.NewCategoryCreated(testID(t, i), "Category", valueobjects.CategoryID{}, time.Now())
		require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{event}))
	}
	relabeled := events.NewCategoryRelabeled(testID(t, 1), "Category", "Renamed", time.Now())
	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{relabeled}))

	recent, err := store.GetEventsByType(ctx, "category.created", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, testID(t, 3).String(), recent[0].GetAggregateID())
	assert.Equal(t, testID(t, 2).String(), recent[1].GetAggregateID())

	// Limit zero returns everything of the type.
	all, err := store.GetEventsByType(ctx, "category.created", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEventStoreGetEventsAfterVersion(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	id := testID(t, 1)
	event := events.NewCategoryCreated(id, "Electronics", valueobjects.CategoryID{}, time.Now())
	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{event}))

	newer, err := store.GetEventsAfter(ctx, id.String(), 0)
	require.NoError(t, err)
	assert.Len(t, newer, 1)

	none, err := store.GetEventsAfter(ctx, id.String(), event.GetVersion())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventStoreDeleteEvents(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	first, second := testID(t, 1), testID(t, 2)
	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{
		events.NewCategoryCreated(first, "Electronics", valueobjects.CategoryID{}, time.Now()),
		events.NewCategoryCreated(second, "Garden", valueobjects.CategoryID{}, time.Now()),
	}))

	require.NoError(t, store.DeleteEvents(ctx, first.String()))

	gone, err := store.GetEvents(ctx, first.String())
	require.NoError(t, err)
	assert.Empty(t, gone)

	// The type index forgets deleted aggregates too.
	byType, err := store.GetEventsByType(ctx, "category.created", 0)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, second.String(), byType[0].GetAggregateID())
}
