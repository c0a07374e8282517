package sagas

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	"catgraph/infrastructure/persistence/memory"
)

func testID(t *testing.T, n int) valueobjects.CategoryID {
	t.Helper()
	id, err := valueobjects.NewCategoryIDFromString(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	require.NoError(t, err)
	return id
}

func seedCategory(t *testing.T, store *memory.CategoryStore, n int, name string, parent valueobjects.CategoryID) *entities.Category {
	t.Helper()
	label, err := valueobjects.NewCategoryLabel(name, "")
	require.NoError(t, err)
	category, err := entities.NewCategoryWithID(testID(t, n), label, parent)
	require.NoError(t, err)
	category.MarkEventsAsCommitted()
	require.NoError(t, store.Save(context.Background(), category))
	return category
}

// failingDeleteRepo fails the final removal step so compensation runs.
type failingDeleteRepo struct {
	*memory.CategoryStore
	err error
}

func (r *failingDeleteRepo) Delete(context.Context, valueobjects.CategoryID) error {
	return r.err
}

// failingBulkSaveRepo fails the re-parenting step.
type failingBulkSaveRepo struct {
	*memory.CategoryStore
	err error
}

func (r *failingBulkSaveRepo) BulkSave(context.Context, []*entities.Category) error {
	return r.err
}

func TestCategoryRemovalSaga(t *testing.T) {
	ctx := context.Background()

	t.Run("removes a node and reports everything it changed", func(t *testing.T) {
		categories := memory.NewCategoryStore()
		similarities := memory.NewSimilarityStore()

		root := seedCategory(t, categories, 1, "Electronics", valueobjects.CategoryID{})
		mid := seedCategory(t, categories, 2, "Computers", root.ID())
		leaf := seedCategory(t, categories, 3, "Laptops", mid.ID())
		other := seedCategory(t, categories, 4, "Garden", valueobjects.CategoryID{})

		edge, err := valueobjects.NewSimilarityEdge(mid.ID(), other.ID())
		require.NoError(t, err)
		require.NoError(t, similarities.Save(ctx, edge))

		saga := NewCategoryRemovalSaga(categories, similarities, config.DefaultDomainConfig(), zap.NewNop())
		result, err := saga.Run(ctx, mid.ID())
		require.NoError(t, err)

		assert.Equal(t, "Computers", result.Category.Name())
		assert.Equal(t, []valueobjects.CategoryID{leaf.ID()}, result.AdoptedChildren)
		assert.Equal(t, 1, result.RemovedEdges)

		_, err = categories.GetByID(ctx, mid.ID())
		assert.Error(t, err)

		stored, err := categories.GetByID(ctx, leaf.ID())
		require.NoError(t, err)
		assert.True(t, stored.ParentID().Equals(root.ID()))

		count, err := similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		// One deletion event plus one move per adopted child.
		require.Len(t, result.Events, 2)
		deleted, ok := result.Events[0].(events.CategoryDeleted)
		require.True(t, ok)
		assert.Equal(t, 1, deleted.RemovedEdges)
		assert.Equal(t, []valueobjects.CategoryID{leaf.ID()}, deleted.AdoptedChildren)
		assert.Equal(t, "category.moved", result.Events[1].GetEventType())
	})

	t.Run("a failed delete restores edges and children", func(t *testing.T) {
		categories := memory.NewCategoryStore()
		similarities := memory.NewSimilarityStore()

		root := seedCategory(t, categories, 1, "Electronics", valueobjects.CategoryID{})
		mid := seedCategory(t, categories, 2, "Computers", root.ID())
		leaf := seedCategory(t, categories, 3, "Laptops", mid.ID())
		other := seedCategory(t, categories, 4, "Garden", valueobjects.CategoryID{})

		edge, err := valueobjects.NewSimilarityEdge(mid.ID(), other.ID())
		require.NoError(t, err)
		require.NoError(t, similarities.Save(ctx, edge))

		boom := errors.New("delete refused")
		repo := &failingDeleteRepo{CategoryStore: categories, err: boom}
		saga := NewCategoryRemovalSaga(repo, similarities, config.DefaultDomainConfig(), zap.NewNop())

		_, err = saga.Run(ctx, mid.ID())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)

		// The stripped edge is back.
		exists, err := similarities.Exists(ctx, edge)
		require.NoError(t, err)
		assert.True(t, exists)

		// The re-parented child points at the surviving category again.
		stored, err := categories.GetByID(ctx, leaf.ID())
		require.NoError(t, err)
		assert.True(t, stored.ParentID().Equals(mid.ID()))

		_, err = categories.GetByID(ctx, mid.ID())
		assert.NoError(t, err, "the category itself was never removed")
	})

	t.Run("a failed re-parent restores edges only", func(t *testing.T) {
		categories := memory.NewCategoryStore()
		similarities := memory.NewSimilarityStore()

		root := seedCategory(t, categories, 1, "Electronics", valueobjects.CategoryID{})
		mid := seedCategory(t, categories, 2, "Computers", root.ID())
		leaf := seedCategory(t, categories, 3, "Laptops", mid.ID())
		other := seedCategory(t, categories, 4, "Garden", valueobjects.CategoryID{})

		edge, err := valueobjects.NewSimilarityEdge(mid.ID(), other.ID())
		require.NoError(t, err)
		require.NoError(t, similarities.Save(ctx, edge))

		boom := errors.New("bulk save refused")
		repo := &failingBulkSaveRepo{CategoryStore: categories, err: boom}
		saga := NewCategoryRemovalSaga(repo, similarities, config.DefaultDomainConfig(), zap.NewNop())

		_, err = saga.Run(ctx, mid.ID())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)

		exists, err := similarities.Exists(ctx, edge)
		require.NoError(t, err)
		assert.True(t, exists)

		// Nothing in the tree changed.
		stored, err := categories.GetByID(ctx, leaf.ID())
		require.NoError(t, err)
		assert.True(t, stored.ParentID().Equals(mid.ID()))
		assert.Equal(t, 1, stored.Version())

		stillRoot, err := categories.GetByID(ctx, root.ID())
		require.NoError(t, err)
		assert.True(t, stillRoot.IsRoot())
	})
}
