package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/application/sagas"
	"catgraph/domain/core/aggregates"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

func newDeleteHandler(env *testEnv) *DeleteCategoryHandler {
	removal := sagas.NewCategoryRemovalSaga(env.categories, env.similarities, env.cfg, env.logger)
	return NewDeleteCategoryHandler(removal, env.bus, env.locks, env.logger)
}

func TestDeleteCategoryHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes a leaf", func(t *testing.T) {
		env := newTestEnv(t)
		root := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		leaf := env.seedCategory(t, 2, "Laptops", root.ID())

		result, err := newDeleteHandler(env).Handle(ctx, DeleteCategoryCommand{CategoryID: leaf.ID().String()})
		require.NoError(t, err)
		assert.Equal(t, leaf.ID().String(), result.CategoryID)
		assert.Empty(t, result.AdoptedChildren)
		assert.Zero(t, result.RemovedEdges)

		_, err = env.categories.GetByID(ctx, leaf.ID())
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)

		assert.Equal(t, []string{"category.deleted"}, env.published.typesSeen())
	})

	t.Run("children are adopted by the grandparent", func(t *testing.T) {
		env := newTestEnv(t)
		root := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		mid := env.seedCategory(t, 2, "Computers", root.ID())
		leafA := env.seedCategory(t, 3, "Laptops", mid.ID())
		leafB := env.seedCategory(t, 4, "Desktops", mid.ID())

		result, err := newDeleteHandler(env).Handle(ctx, DeleteCategoryCommand{CategoryID: mid.ID().String()})
		require.NoError(t, err)
		assert.Equal(t, []string{leafA.ID().String(), leafB.ID().String()}, result.AdoptedChildren)

		for _, id := range []valueobjects.CategoryID{leafA.ID(), leafB.ID()} {
			stored, err := env.categories.GetByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, stored.ParentID().Equals(root.ID()))
		}

		types := env.published.typesSeen()
		require.Len(t, types, 3)
		assert.Equal(t, "category.deleted", types[0])
		assert.Equal(t, []string{"category.moved", "category.moved"}, types[1:])
	})

	t.Run("children of a deleted root become roots", func(t *testing.T) {
		env := newTestEnv(t)
		root := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		child := env.seedCategory(t, 2, "Laptops", root.ID())

		result, err := newDeleteHandler(env).Handle(ctx, DeleteCategoryCommand{CategoryID: root.ID().String()})
		require.NoError(t, err)
		assert.Equal(t, []string{child.ID().String()}, result.AdoptedChildren)

		stored, err := env.categories.GetByID(ctx, child.ID())
		require.NoError(t, err)
		assert.True(t, stored.IsRoot())
	})

	t.Run("similarity edges are stripped and counted", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		b := env.seedCategory(t, 2, "Garden", valueobjects.CategoryID{})
		c := env.seedCategory(t, 3, "Kitchen", valueobjects.CategoryID{})
		env.seedEdge(t, a.ID(), b.ID())
		env.seedEdge(t, a.ID(), c.ID())
		env.seedEdge(t, b.ID(), c.ID())

		result, err := newDeleteHandler(env).Handle(ctx, DeleteCategoryCommand{CategoryID: a.ID().String()})
		require.NoError(t, err)
		assert.Equal(t, 2, result.RemovedEdges)

		remaining, err := env.similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, remaining, "the b-c edge survives")
	})

	t.Run("delete and move serialize on the tree lock", func(t *testing.T) {
		env := newTestEnv(t)
		root := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		doomed := env.seedCategory(t, 2, "Cameras", root.ID())
		drifter := env.seedCategory(t, 3, "Tripods", valueobjects.CategoryID{})

		repo := &slowCategoryStore{CategoryRepository: env.categories, delay: 25 * time.Millisecond}
		removal := sagas.NewCategoryRemovalSaga(repo, env.similarities, env.cfg, env.logger)
		del := NewDeleteCategoryHandler(removal, env.bus, env.locks, env.logger)
		move := NewMoveCategoryHandler(repo, env.bus, env.locks, env.cfg, env.logger)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = del.Handle(ctx, DeleteCategoryCommand{CategoryID: doomed.ID().String()})
		}()
		go func() {
			defer wg.Done()
			_, _ = move.Handle(ctx, MoveCategoryCommand{
				CategoryID: drifter.ID().String(),
				ParentID:   strptr(doomed.ID().String()),
			})
		}()
		wg.Wait()

		// Whichever order the lock grants, the survivors form a valid tree
		// and nothing dangles off the deleted category.
		categories, err := env.categories.GetAll(ctx)
		require.NoError(t, err)
		taxonomy, err := aggregates.BuildTaxonomy(categories, env.cfg)
		require.NoError(t, err)
		assert.NoError(t, taxonomy.Validate())
		for _, category := range categories {
			assert.False(t, category.ParentID().Equals(doomed.ID()))
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := newDeleteHandler(env).Handle(ctx, DeleteCategoryCommand{CategoryID: testID(t, 9).String()})
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})

	t.Run("malformed ID", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := newDeleteHandler(env).Handle(ctx, DeleteCategoryCommand{CategoryID: "not-a-uuid"})
		assert.Error(t, err)
	})
}

func TestDeleteCategoryCommandValidate(t *testing.T) {
	assert.Error(t, DeleteCategoryCommand{}.Validate())
	assert.NoError(t, DeleteCategoryCommand{CategoryID: "x"}.Validate())
}
