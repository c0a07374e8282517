package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/application/queries"
	pkgerrors "catgraph/pkg/errors"
)

func newDetailHandler(f *catalogFixture) *GetCategoryHandler {
	return NewGetCategoryHandler(f.categories, f.similarities, nil, f.logger)
}

func TestGetCategoryHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles the full detail view", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newDetailHandler(f).Handle(ctx, queries.GetCategoryQuery{
			CategoryID: testID(t, 4).String(),
		})
		require.NoError(t, err)

		assert.Equal(t, "Laptops", result.Category.Name)
		assert.Equal(t, testID(t, 1).String(), result.Category.ParentID)
		assert.False(t, result.Category.IsRoot)
		assert.Equal(t, 1, result.Category.Version)

		assert.Equal(t, 1, result.Depth)
		assert.Equal(t, []string{"Electronics"}, viewNames(result.Ancestors))
		assert.Equal(t, []string{"Gaming Laptops"}, viewNames(result.Children))
		assert.Equal(t, []string{"Phones", "Books"}, viewNames(result.Similar), "neighbors come in ascending ID order")
	})

	t.Run("a root detail has no parent and no ancestors", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newDetailHandler(f).Handle(ctx, queries.GetCategoryQuery{
			CategoryID: testID(t, 2).String(),
		})
		require.NoError(t, err)

		assert.True(t, result.Category.IsRoot)
		assert.Empty(t, result.Category.ParentID)
		assert.Zero(t, result.Depth)
		assert.Empty(t, result.Ancestors)
		assert.Empty(t, result.Children)
		assert.Empty(t, result.Similar)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newDetailHandler(f).Handle(ctx, queries.GetCategoryQuery{
			CategoryID: testID(t, 9).String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})

	t.Run("malformed ID", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newDetailHandler(f).Handle(ctx, queries.GetCategoryQuery{
			CategoryID: "not-a-uuid",
		})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("an edge pointing at a vanished category is surfaced", func(t *testing.T) {
		f := newCatalogFixture(t)
		require.NoError(t, f.categories.Delete(ctx, testID(t, 6)))

		_, err := newDetailHandler(f).Handle(ctx, queries.GetCategoryQuery{
			CategoryID: testID(t, 4).String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrSnapshotInconsistent)
	})
}
