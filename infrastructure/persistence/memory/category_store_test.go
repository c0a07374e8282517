package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

func TestCategoryStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	parent := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	require.NoError(t, store.Save(ctx, parent))

	child := newCategory(t, 2, "Laptops", parent.ID())
	require.NoError(t, store.Save(ctx, child))

	got, err := store.GetByID(ctx, child.ID())
	require.NoError(t, err)
	assert.Equal(t, "Laptops", got.Name())
	assert.True(t, got.ParentID().Equals(parent.ID()))
	assert.Equal(t, 1, got.Version())

	count, err := store.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCategoryStoreGetByIDMissing(t *testing.T) {
	store := NewCategoryStore()

	_, err := store.GetByID(context.Background(), testID(t, 9))
	assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
}

func TestCategoryStoreVersionGuard(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	category := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	require.NoError(t, store.Save(ctx, category))

	// A write carrying the stored version is stale and must be rejected.
	stale, err := store.GetByID(ctx, category.ID())
	require.NoError(t, err)
	assert.ErrorIs(t, store.Save(ctx, stale), pkgerrors.ErrConcurrentModification)

	// Mutating bumps the version, so the same instance saves cleanly.
	label, err := valueobjects.NewCategoryLabel("Electronics", "devices and parts")
	require.NoError(t, err)
	require.NoError(t, stale.Relabel(label))
	require.NoError(t, store.Save(ctx, stale))

	got, err := store.GetByID(ctx, category.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version())
	assert.Equal(t, "devices and parts", got.Label().Description())
}

func TestCategoryStoreBulkSaveSkipsVersionGuard(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	category := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	require.NoError(t, store.Save(ctx, category))

	bumped, err := store.GetByID(ctx, category.ID())
	require.NoError(t, err)
	label, err := valueobjects.NewCategoryLabel("Electronics", "devices")
	require.NoError(t, err)
	require.NoError(t, bumped.Relabel(label))
	require.NoError(t, store.Save(ctx, bumped))

	// BulkSave restores an older snapshot without a guard. Saga
	// compensation depends on this.
	require.NoError(t, store.BulkSave(ctx, []*entities.Category{category}))

	got, err := store.GetByID(ctx, category.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version())
	assert.Empty(t, got.Label().Description())
}

func TestCategoryStoreClonesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	category := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	require.NoError(t, store.Save(ctx, category))

	// Mutating the caller's instance must not leak into the store.
	label, err := valueobjects.NewCategoryLabel("Hardware", "")
	require.NoError(t, err)
	require.NoError(t, category.Relabel(label))

	got, err := store.GetByID(ctx, category.ID())
	require.NoError(t, err)
	assert.Equal(t, "Electronics", got.Name())
	assert.Empty(t, got.GetUncommittedEvents(), "reads behave like a serialization round trip")

	// Mutating a read result must not leak either.
	require.NoError(t, got.Relabel(label))
	again, err := store.GetByID(ctx, category.ID())
	require.NoError(t, err)
	assert.Equal(t, "Electronics", again.Name())
}

func TestCategoryStoreHierarchyReads(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	rootA := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	rootB := newCategory(t, 2, "Garden", valueobjects.CategoryID{})
	childA := newCategory(t, 3, "Laptops", rootA.ID())
	childB := newCategory(t, 4, "Phones", rootA.ID())
	for _, category := range []*entities.Category{rootA, rootB, childA, childB} {
		require.NoError(t, store.Save(ctx, category))
	}

	roots, err := store.GetRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "Electronics", roots[0].Name())
	assert.Equal(t, "Garden", roots[1].Name())

	children, err := store.GetByParentID(ctx, rootA.ID())
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Laptops", children[0].Name())
	assert.Equal(t, "Phones", children[1].Name())

	none, err := store.GetByParentID(ctx, rootB.ID())
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCategoryStoreSearch(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	rootA := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	rootB := newCategory(t, 2, "Garden", valueobjects.CategoryID{})
	childA := newCategory(t, 3, "Laptops", rootA.ID())
	childB := newCategory(t, 4, "Phones", rootA.ID())
	for _, category := range []*entities.Category{rootA, rootB, childA, childB} {
		require.NoError(t, store.Save(ctx, category))
	}

	t.Run("roots only", func(t *testing.T) {
		matches, total, err := store.Search(ctx, ports.ListCriteria{RootsOnly: true})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, matches, 2)
		assert.Equal(t, "Electronics", matches[0].Name())
		assert.Equal(t, "Garden", matches[1].Name())
	})

	t.Run("by parent", func(t *testing.T) {
		matches, total, err := store.Search(ctx, ports.ListCriteria{ParentID: rootA.ID()})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, matches, 2)
		assert.Equal(t, "Laptops", matches[0].Name())
		assert.Equal(t, "Phones", matches[1].Name())
	})

	t.Run("name substring is case insensitive", func(t *testing.T) {
		matches, total, err := store.Search(ctx, ports.ListCriteria{Search: "PHO"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, matches, 1)
		assert.Equal(t, "Phones", matches[0].Name())
	})

	t.Run("window preserves total", func(t *testing.T) {
		matches, total, err := store.Search(ctx, ports.ListCriteria{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, matches, 2)
		// Name order: Electronics, Garden, Laptops, Phones.
		assert.Equal(t, "Garden", matches[0].Name())
		assert.Equal(t, "Laptops", matches[1].Name())
	})

	t.Run("offset past the end", func(t *testing.T) {
		matches, total, err := store.Search(ctx, ports.ListCriteria{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, matches)
	})

	t.Run("descending name order", func(t *testing.T) {
		matches, _, err := store.Search(ctx, ports.ListCriteria{OrderDesc: true})
		require.NoError(t, err)
		require.Len(t, matches, 4)
		assert.Equal(t, "Phones", matches[0].Name())
		assert.Equal(t, "Electronics", matches[3].Name())
	})
}

func TestCategoryStoreSearchOrdersByTimestamps(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"Cheese", "Apples", "Bread"} {
		label, err := valueobjects.NewCategoryLabel(name, "")
		require.NoError(t, err)
		created := base.Add(time.Duration(i) * time.Hour)
		category, err := entities.ReconstructCategory(testID(t, i+1), label, valueobjects.CategoryID{}, "", created, created, 1)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, category))
	}

	matches, _, err := store.Search(ctx, ports.ListCriteria{OrderBy: "created_at"})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "Cheese", matches[0].Name())
	assert.Equal(t, "Bread", matches[2].Name())

	matches, _, err = store.Search(ctx, ports.ListCriteria{OrderBy: "created_at", OrderDesc: true})
	require.NoError(t, err)
	assert.Equal(t, "Bread", matches[0].Name())
}

func TestCategoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	category := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	require.NoError(t, store.Save(ctx, category))
	require.NoError(t, store.Delete(ctx, category.ID()))

	_, err := store.GetByID(ctx, category.ID())
	assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)

	assert.ErrorIs(t, store.Delete(ctx, category.ID()), pkgerrors.ErrCategoryNotFound)
}

func TestCategoryStoreDeleteBatchIgnoresMissing(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()

	first := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	second := newCategory(t, 2, "Garden", valueobjects.CategoryID{})
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	require.NoError(t, store.DeleteBatch(ctx, []valueobjects.CategoryID{first.ID(), testID(t, 99)}))

	count, err := store.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
