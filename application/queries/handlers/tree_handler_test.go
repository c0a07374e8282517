package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/application/queries"
	pkgerrors "catgraph/pkg/errors"
)

func newTreeHandler(f *catalogFixture) *TreeQueryHandler {
	return NewTreeQueryHandler(f.categories, nil, f.logger)
}

func TestTreeQueryHandlerGetTree(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	result, err := newTreeHandler(f).HandleGetTree(ctx, queries.GetTreeQuery{})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Total)
	require.Len(t, result.Roots, 3)

	roots := make([]string, len(result.Roots))
	for i, root := range result.Roots {
		roots[i] = root.Name
	}
	assert.Equal(t, []string{"Electronics", "Garden", "Books"}, roots, "roots come in ascending ID order")

	electronics := result.Roots[0]
	require.Len(t, electronics.Children, 2)
	assert.Equal(t, "Phones", electronics.Children[0].Name)
	assert.Equal(t, "Laptops", electronics.Children[1].Name)
	assert.Empty(t, electronics.Children[0].Children)

	laptops := electronics.Children[1]
	require.Len(t, laptops.Children, 1)
	assert.Equal(t, "Gaming Laptops", laptops.Children[0].Name)
	assert.Equal(t, testID(t, 4).String(), laptops.Children[0].ParentID)

	assert.Empty(t, result.Roots[1].Children)
	assert.Empty(t, result.Roots[2].Children)
}

func TestTreeQueryHandlerGetRoots(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	result, err := newTreeHandler(f).HandleGetRoots(ctx, queries.GetRootsQuery{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Electronics", "Garden", "Books"}, viewNames(result.Roots))
	for _, root := range result.Roots {
		assert.True(t, root.IsRoot)
		assert.Empty(t, root.ParentID)
	}
}

func TestTreeQueryHandlerGetChildren(t *testing.T) {
	ctx := context.Background()

	t.Run("lists direct children in ascending ID order", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newTreeHandler(f).HandleGetChildren(ctx, queries.GetChildrenQuery{
			CategoryID: testID(t, 1).String(),
		})
		require.NoError(t, err)

		assert.Equal(t, testID(t, 1).String(), result.CategoryID)
		assert.Equal(t, []string{"Phones", "Laptops"}, viewNames(result.Children))
	})

	t.Run("a leaf has no children", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newTreeHandler(f).HandleGetChildren(ctx, queries.GetChildrenQuery{
			CategoryID: testID(t, 5).String(),
		})
		require.NoError(t, err)
		assert.Empty(t, result.Children)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newTreeHandler(f).HandleGetChildren(ctx, queries.GetChildrenQuery{
			CategoryID: testID(t, 9).String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})

	t.Run("malformed ID", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newTreeHandler(f).HandleGetChildren(ctx, queries.GetChildrenQuery{
			CategoryID: "not-a-uuid",
		})
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestTreeQueryHandlerGetAncestors(t *testing.T) {
	ctx := context.Background()

	t.Run("walks the chain root first", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newTreeHandler(f).HandleGetAncestors(ctx, queries.GetAncestorsQuery{
			CategoryID: testID(t, 5).String(),
		})
		require.NoError(t, err)

		assert.Equal(t, 2, result.Depth)
		assert.Equal(t, []string{"Electronics", "Laptops"}, viewNames(result.Ancestors))
	})

	t.Run("a root has no ancestors", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newTreeHandler(f).HandleGetAncestors(ctx, queries.GetAncestorsQuery{
			CategoryID: testID(t, 2).String(),
		})
		require.NoError(t, err)
		assert.Zero(t, result.Depth)
		assert.Empty(t, result.Ancestors)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newTreeHandler(f).HandleGetAncestors(ctx, queries.GetAncestorsQuery{
			CategoryID: testID(t, 9).String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})
}

func TestTreeQueryHandlerGetDescendants(t *testing.T) {
	ctx := context.Background()

	t.Run("collects the whole subtree breadth first", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newTreeHandler(f).HandleGetDescendants(ctx, queries.GetDescendantsQuery{
			CategoryID: testID(t, 1).String(),
		})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Count)
		assert.Equal(t, []string{"Phones", "Laptops", "Gaming Laptops"}, viewNames(result.Descendants))
	})

	t.Run("a leaf has no descendants", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newTreeHandler(f).HandleGetDescendants(ctx, queries.GetDescendantsQuery{
			CategoryID: testID(t, 3).String(),
		})
		require.NoError(t, err)
		assert.Zero(t, result.Count)
		assert.Empty(t, result.Descendants)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newTreeHandler(f).HandleGetDescendants(ctx, queries.GetDescendantsQuery{
			CategoryID: testID(t, 9).String(),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})
}
