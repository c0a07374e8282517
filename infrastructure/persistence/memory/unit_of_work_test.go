package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"
)

func newTestUnitOfWork(t *testing.T) (*UnitOfWork, *CategoryStore, *SimilarityStore, *EventStore) {
	t.Helper()
	categories := NewCategoryStore()
	similarities := NewSimilarityStore()
	eventStore := NewEventStore()
	return NewUnitOfWork(categories, similarities, eventStore), categories, similarities, eventStore
}

func TestUnitOfWorkCommitAppliesStagedWrites(t *testing.T) {
	ctx := context.Background()
	uow, categories, similarities, _ := newTestUnitOfWork(t)

	require.NoError(t, uow.Begin(ctx))

	first := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	second := newCategory(t, 2, "Garden", valueobjects.CategoryID{})
	require.NoError(t, uow.CategoryRepository().Save(ctx, first))
	require.NoError(t, uow.CategoryRepository().Save(ctx, second))
	require.NoError(t, uow.SimilarityRepository().Save(ctx, newEdge(t, first.ID(), second.ID())))

	// Nothing lands before Commit.
	count, err := categories.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, uow.Commit(ctx))

	count, err = categories.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	edges, err := similarities.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edges)
}

func TestUnitOfWorkCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	uow, categories, similarities, _ := newTestUnitOfWork(t)

	existing := newEdge(t, testID(t, 1), testID(t, 2))
	require.NoError(t, similarities.Save(ctx, existing))

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.CategoryRepository().Save(ctx, newCategory(t, 3, "Electronics", valueobjects.CategoryID{})))
	require.NoError(t, uow.SimilarityRepository().Save(ctx, existing))

	err := uow.Commit(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrDuplicateSimilarity)

	// The category save staged before the failing edge must not apply.
	count, err := categories.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnitOfWorkVersionCheckRunsAtCommit(t *testing.T) {
	ctx := context.Background()
	uow, categories, _, _ := newTestUnitOfWork(t)

	category := newCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	require.NoError(t, categories.Save(ctx, category))

	require.NoError(t, uow.Begin(ctx))
	stale, err := categories.GetByID(ctx, category.ID())
	require.NoError(t, err)
	require.NoError(t, uow.CategoryRepository().Save(ctx, stale), "staging succeeds; the guard fires at commit")

	assert.ErrorIs(t, uow.Commit(ctx), pkgerrors.ErrConcurrentModification)
}

func TestUnitOfWorkRollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	uow, categories, _, _ := newTestUnitOfWork(t)

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.CategoryRepository().Save(ctx, newCategory(t, 1, "Electronics", valueobjects.CategoryID{})))
	require.NoError(t, uow.Rollback())

	count, err := categories.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The transaction ended; further staging is rejected.
	assert.Error(t, uow.CategoryRepository().Save(ctx, newCategory(t, 2, "Garden", valueobjects.CategoryID{})))
}

func TestUnitOfWorkRegisterEventsAppliesOnCommit(t *testing.T) {
	ctx := context.Background()
	uow, _, _, eventStore := newTestUnitOfWork(t)

	edge := newEdge(t, testID(t, 1), testID(t, 2))
	event := events.NewCategoriesLinked(edge, time.Now())

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.RegisterEvents(event))

	stored, err := eventStore.GetEvents(ctx, edge.First().String())
	require.NoError(t, err)
	assert.Empty(t, stored)

	require.NoError(t, uow.Commit(ctx))

	stored, err = eventStore.GetEvents(ctx, edge.First().String())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "categories.linked", stored[0].GetEventType())
}

func TestUnitOfWorkBeginTwiceFails(t *testing.T) {
	ctx := context.Background()
	uow, _, _, _ := newTestUnitOfWork(t)

	require.NoError(t, uow.Begin(ctx))
	assert.Error(t, uow.Begin(ctx))
}

func TestUnitOfWorkRollbackAfterCommitIsNoOp(t *testing.T) {
	ctx := context.Background()
	uow, categories, _, _ := newTestUnitOfWork(t)

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.CategoryRepository().Save(ctx, newCategory(t, 1, "Electronics", valueobjects.CategoryID{})))
	require.NoError(t, uow.Commit(ctx))
	require.NoError(t, uow.Rollback())

	count, err := categories.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnitOfWorkFactoryIsolatesTransactions(t *testing.T) {
	ctx := context.Background()
	categories := NewCategoryStore()
	factory := NewUnitOfWorkFactory(categories, NewSimilarityStore(), NewEventStore())

	first, err := factory.Create(ctx)
	require.NoError(t, err)
	second, err := factory.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, first.Begin(ctx))
	require.NoError(t, second.Begin(ctx))

	require.NoError(t, first.CategoryRepository().Save(ctx, newCategory(t, 1, "Electronics", valueobjects.CategoryID{})))
	require.NoError(t, second.Rollback())
	require.NoError(t, first.Commit(ctx))

	count, err := categories.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnitOfWorkStagesDeleteByCategoryID(t *testing.T) {
	ctx := context.Background()
	uow, _, similarities, _ := newTestUnitOfWork(t)

	a, b, c := testID(t, 1), testID(t, 2), testID(t, 3)
	require.NoError(t, similarities.Save(ctx, newEdge(t, a, b)))
	require.NoError(t, similarities.Save(ctx, newEdge(t, a, c)))
	require.NoError(t, similarities.Save(ctx, newEdge(t, b, c)))

	require.NoError(t, uow.Begin(ctx))
	removed, err := uow.SimilarityRepository().DeleteByCategoryID(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Deletes stage like any other write.
	count, err := similarities.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, uow.Commit(ctx))

	count, err = similarities.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
