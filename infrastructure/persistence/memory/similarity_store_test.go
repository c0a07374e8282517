package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

func TestSimilarityStoreSaveAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewSimilarityStore()

	a, b, c := testID(t, 1), testID(t, 2), testID(t, 3)
	ab := newEdge(t, a, b)
	bc := newEdge(t, b, c)
	require.NoError(t, store.Save(ctx, ab))
	require.NoError(t, store.Save(ctx, bc))

	exists, err := store.Exists(ctx, newEdge(t, b, a))
	require.NoError(t, err)
	assert.True(t, exists, "edge lookup is order independent")

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Equals(ab))
	assert.True(t, all[1].Equals(bc))

	touching, err := store.GetByCategoryID(ctx, a)
	require.NoError(t, err)
	require.Len(t, touching, 1)
	assert.True(t, touching[0].Equals(ab))
}

func TestSimilarityStoreDuplicateSaveIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewSimilarityStore()

	edge := newEdge(t, testID(t, 1), testID(t, 2))
	require.NoError(t, store.Save(ctx, edge))
	require.NoError(t, store.Save(ctx, edge))

	count, err := store.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSimilarityStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSimilarityStore()

	edge := newEdge(t, testID(t, 1), testID(t, 2))
	require.NoError(t, store.Save(ctx, edge))
	require.NoError(t, store.Delete(ctx, edge))

	assert.ErrorIs(t, store.Delete(ctx, edge), pkgerrors.ErrSimilarityNotFound)
}

func TestSimilarityStoreDeleteByCategoryID(t *testing.T) {
	ctx := context.Background()
	store := NewSimilarityStore()

	a, b, c, d := testID(t, 1), testID(t, 2), testID(t, 3), testID(t, 4)
	for _, edge := range []valueobjects.SimilarityEdge{newEdge(t, a, b), newEdge(t, a, c), newEdge(t, c, d)} {
		require.NoError(t, store.Save(ctx, edge))
	}

	removed, err := store.DeleteByCategoryID(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].Contains(c))
	assert.True(t, remaining[0].Contains(d))

	// No matches removes nothing.
	removed, err = store.DeleteByCategoryID(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSimilarityStoreBulkSave(t *testing.T) {
	ctx := context.Background()
	store := NewSimilarityStore()

	edges := []valueobjects.SimilarityEdge{
		newEdge(t, testID(t, 1), testID(t, 2)),
		newEdge(t, testID(t, 2), testID(t, 3)),
		newEdge(t, testID(t, 1), testID(t, 2)),
	}
	require.NoError(t, store.BulkSave(ctx, edges))

	count, err := store.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
