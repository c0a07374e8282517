package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

func strptr(s string) *string { return &s }

func TestUpdateCategoryHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("relabeling the name preserves the description", func(t *testing.T) {
		env := newTestEnv(t)
		label, err := valueobjects.NewCategoryLabel("Electronics", "devices and parts")
		require.NoError(t, err)
		category, err := entities.NewCategoryWithID(testID(t, 1), label, valueobjects.CategoryID{})
		require.NoError(t, err)
		category.MarkEventsAsCommitted()
		require.NoError(t, env.categories.Save(ctx, category))

		handler := NewUpdateCategoryHandler(env.categories, env.bus, env.cfg, env.logger)
		updated, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: category.ID().String(),
			Name:       strptr("Hardware"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Hardware", updated.Name())
		assert.Equal(t, "devices and parts", updated.Label().Description())
		assert.Equal(t, 2, updated.Version())

		assert.Equal(t, []string{"category.relabeled"}, env.published.typesSeen())
	})

	t.Run("updates the image without touching the label", func(t *testing.T) {
		env := newTestEnv(t)
		category := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})

		handler := NewUpdateCategoryHandler(env.categories, env.bus, env.cfg, env.logger)
		updated, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: category.ID().String(),
			ImageURL:   strptr("https://cdn.example.com/electronics.png"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/electronics.png", updated.ImageURL())
		assert.Equal(t, "Electronics", updated.Name())
		assert.Empty(t, env.published.typesSeen(), "image changes emit no label event")

		stored, err := env.categories.GetByID(ctx, category.ID())
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version())
	})

	t.Run("clears the image with an empty string", func(t *testing.T) {
		env := newTestEnv(t)
		category := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})

		handler := NewUpdateCategoryHandler(env.categories, env.bus, env.cfg, env.logger)
		_, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: category.ID().String(),
			ImageURL:   strptr("https://cdn.example.com/electronics.png"),
		})
		require.NoError(t, err)

		updated, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: category.ID().String(),
			ImageURL:   strptr(""),
		})
		require.NoError(t, err)
		assert.Empty(t, updated.ImageURL())
	})

	t.Run("an identical update consumes no version", func(t *testing.T) {
		env := newTestEnv(t)
		category := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})

		handler := NewUpdateCategoryHandler(env.categories, env.bus, env.cfg, env.logger)
		updated, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: category.ID().String(),
			Name:       strptr("Electronics"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Version())
		assert.Empty(t, env.published.typesSeen())
	})

	t.Run("unknown category", func(t *testing.T) {
		env := newTestEnv(t)
		handler := NewUpdateCategoryHandler(env.categories, env.bus, env.cfg, env.logger)

		_, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: testID(t, 9).String(),
			Name:       strptr("Hardware"),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})

	t.Run("rejects an invalid image URL", func(t *testing.T) {
		env := newTestEnv(t)
		category := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})

		handler := NewUpdateCategoryHandler(env.categories, env.bus, env.cfg, env.logger)
		_, err := handler.Handle(ctx, UpdateCategoryCommand{
			CategoryID: category.ID().String(),
			ImageURL:   strptr("cdn.example.com/x.png"),
		})
		assert.Error(t, err, "scheme-less URLs are rejected")
	})
}

func TestUpdateCategoryCommandValidate(t *testing.T) {
	assert.Error(t, UpdateCategoryCommand{}.Validate(), "category ID is required")
	assert.Error(t, UpdateCategoryCommand{CategoryID: "x"}.Validate(), "at least one field must change")
	assert.Error(t, UpdateCategoryCommand{CategoryID: "x", Name: strptr("")}.Validate(), "name cannot be blanked")
	assert.NoError(t, UpdateCategoryCommand{CategoryID: "x", Name: strptr("Hardware")}.Validate())
	assert.NoError(t, UpdateCategoryCommand{CategoryID: "x", Description: strptr("")}.Validate(), "description may be cleared")
}
