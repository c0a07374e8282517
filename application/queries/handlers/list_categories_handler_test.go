package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/application/queries"
	"catgraph/pkg/common"
	pkgerrors "catgraph/pkg/errors"
)

func newListHandler(f *catalogFixture) *ListCategoriesHandler {
	return NewListCategoriesHandler(f.categories, f.logger)
}

func TestListCategoriesHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to one name-sorted page", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"Books", "Electronics", "Gaming Laptops", "Garden", "Laptops", "Phones",
		}, viewNames(result.Items))
		assert.Equal(t, 6, result.Total)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 20, result.PageSize)
		assert.Equal(t, 1, result.TotalPages)
		assert.False(t, result.HasMore)
	})

	t.Run("pages keep the full total", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{
			Page:     2,
			PageSize: 2,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Gaming Laptops", "Garden"}, viewNames(result.Items))
		assert.Equal(t, 6, result.Total)
		assert.Equal(t, 3, result.TotalPages)
		assert.True(t, result.HasMore)
	})

	t.Run("search matches names case-insensitively", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{Search: "LAP"})
		require.NoError(t, err)

		assert.Equal(t, []string{"Gaming Laptops", "Laptops"}, viewNames(result.Items))
		assert.Equal(t, 2, result.Total)
	})

	t.Run("filters to roots", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{RootsOnly: true})
		require.NoError(t, err)

		assert.Equal(t, []string{"Books", "Electronics", "Garden"}, viewNames(result.Items))
	})

	t.Run("filters to one parent's children", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{
			ParentID: testID(t, 1).String(),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Laptops", "Phones"}, viewNames(result.Items))
	})

	t.Run("sorts descending on request", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{
			SortBy:   "name",
			SortDesc: true,
		})
		require.NoError(t, err)

		assert.Equal(t, "Phones", result.Items[0].Name)
		assert.Equal(t, "Books", result.Items[len(result.Items)-1].Name)
	})

	t.Run("an unknown sort field falls back to name", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{SortBy: "degree"})
		require.NoError(t, err)

		assert.Equal(t, "Books", result.Items[0].Name)
	})

	t.Run("page size is capped", func(t *testing.T) {
		f := newCatalogFixture(t)

		result, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{PageSize: 5000})
		require.NoError(t, err)

		assert.Equal(t, common.MaxPageSize, result.PageSize)
	})

	t.Run("malformed parent ID", func(t *testing.T) {
		f := newCatalogFixture(t)

		_, err := newListHandler(f).Handle(ctx, queries.ListCategoriesQuery{ParentID: "not-a-uuid"})
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestListCategoriesQueryValidate(t *testing.T) {
	assert.NoError(t, queries.ListCategoriesQuery{}.Validate())
	assert.Error(t, queries.ListCategoriesQuery{Page: -1}.Validate())
	assert.Error(t, queries.ListCategoriesQuery{ParentID: "x", RootsOnly: true}.Validate())
}
