package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

func newUnlinkHandler(env *testEnv) *UnlinkCategoriesHandler {
	return NewUnlinkCategoriesHandler(env.similarities, env.bus, env.logger)
}

func TestUnlinkCategoriesHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the edge and announces it", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		b := env.seedCategory(t, 2, "Garden", valueobjects.CategoryID{})
		edge := env.seedEdge(t, a.ID(), b.ID())

		err := newUnlinkHandler(env).Handle(ctx, UnlinkCategoriesCommand{
			CategoryA: a.ID().String(),
			CategoryB: b.ID().String(),
		})
		require.NoError(t, err)

		exists, err := env.similarities.Exists(ctx, edge)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, []string{"categories.unlinked"}, env.published.typesSeen())
	})

	t.Run("the pair is order independent", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		b := env.seedCategory(t, 2, "Garden", valueobjects.CategoryID{})
		env.seedEdge(t, a.ID(), b.ID())

		err := newUnlinkHandler(env).Handle(ctx, UnlinkCategoriesCommand{
			CategoryA: b.ID().String(),
			CategoryB: a.ID().String(),
		})
		require.NoError(t, err)

		count, err := env.similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("missing edge", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		b := env.seedCategory(t, 2, "Garden", valueobjects.CategoryID{})

		err := newUnlinkHandler(env).Handle(ctx, UnlinkCategoriesCommand{
			CategoryA: a.ID().String(),
			CategoryB: b.ID().String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrSimilarityNotFound)
		assert.Empty(t, env.published.typesSeen())
	})

	t.Run("self pair", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})

		err := newUnlinkHandler(env).Handle(ctx, UnlinkCategoriesCommand{
			CategoryA: a.ID().String(),
			CategoryB: a.ID().String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrSelfSimilarity)
	})

	t.Run("malformed ID", func(t *testing.T) {
		env := newTestEnv(t)

		err := newUnlinkHandler(env).Handle(ctx, UnlinkCategoriesCommand{
			CategoryA: "not-a-uuid",
			CategoryB: testID(t, 2).String(),
		})
		assert.Error(t, err)
	})
}

func TestUnlinkCategoriesCommandValidate(t *testing.T) {
	assert.Error(t, UnlinkCategoriesCommand{CategoryB: "b"}.Validate())
	assert.Error(t, UnlinkCategoriesCommand{CategoryA: "a", CategoryB: "a"}.Validate())
	assert.NoError(t, UnlinkCategoriesCommand{CategoryA: "a", CategoryB: "b"}.Validate())
}
