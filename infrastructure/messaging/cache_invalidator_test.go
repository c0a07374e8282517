package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	"catgraph/infrastructure/persistence/memory"
)

func invalidatorTestID(t *testing.T, s string) valueobjects.CategoryID {
	t.Helper()
	id, err := valueobjects.NewCategoryIDFromString(s)
	require.NoError(t, err)
	return id
}

func TestCacheInvalidator_DropsKeysOnSubscribedEvent(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	require.NoError(t, cache.Set(ctx, "category:tree", "stale-tree", 300))
	require.NoError(t, cache.Set(ctx, "untouched", "kept", 300))

	bus := NewInProcessEventBus(zap.NewNop())
	invalidator := NewCacheInvalidator(cache, zap.NewNop(), "category:tree")
	require.NoError(t, bus.Subscribe("category.moved", invalidator))

	event := events.NewCategoryMoved(
		invalidatorTestID(t, "00000000-0000-4000-8000-000000000001"),
		invalidatorTestID(t, "00000000-0000-4000-8000-000000000002"),
		invalidatorTestID(t, "00000000-0000-4000-8000-000000000003"),
		time.Now(),
	)
	require.NoError(t, bus.Publish(ctx, event))

	_, found := cache.Get(ctx, "category:tree")
	assert.False(t, found, "the cached tree must not outlive the move")

	_, found = cache.Get(ctx, "untouched")
	assert.True(t, found, "keys outside the invalidation list stay cached")
}

func TestCacheInvalidator_UnsubscribedEventLeavesCache(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	require.NoError(t, cache.Set(ctx, "category:tree", "tree", 300))

	bus := NewInProcessEventBus(zap.NewNop())
	invalidator := NewCacheInvalidator(cache, zap.NewNop(), "category:tree")
	require.NoError(t, bus.Subscribe("category.moved", invalidator))

	edge, err := valueobjects.NewSimilarityEdge(
		invalidatorTestID(t, "00000000-0000-4000-8000-000000000001"),
		invalidatorTestID(t, "00000000-0000-4000-8000-000000000002"),
	)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, events.NewCategoriesLinked(edge, time.Now())))

	_, found := cache.Get(ctx, "category:tree")
	assert.True(t, found, "edge events do not change the tree")
}
