package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catgraph/application/commands"
	"catgraph/application/sagas"
	appservices "catgraph/application/services"
	"catgraph/domain/config"
	"catgraph/domain/core/valueobjects"
	"catgraph/infrastructure/messaging"
	"catgraph/infrastructure/persistence/memory"
	pkgerrors "catgraph/pkg/errors"
)

// env wires the full catalog stack over the in-memory stores: the same
// collaborators the DI container assembles in production, minus AWS.
type env struct {
	categories   *memory.CategoryStore
	similarities *memory.SimilarityStore
	events       *memory.EventStore
	uowFactory   *memory.UnitOfWorkFactory
	locks        *memory.LockManager
	bus          *messaging.InProcessEventBus
	cfg          *config.DomainConfig
	logger       *zap.Logger

	create   *commands.CreateCategoryHandler
	move     *commands.MoveCategoryHandler
	del      *commands.DeleteCategoryHandler
	link     *commands.LinkCategoriesHandler
	bulkLink *commands.BulkLinkCategoriesHandler
	analysis *appservices.AnalysisService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		categories:   memory.NewCategoryStore(),
		similarities: memory.NewSimilarityStore(),
		events:       memory.NewEventStore(),
		locks:        memory.NewLockManager(),
		cfg:          config.DefaultDomainConfig(),
		logger:       zap.NewNop(),
	}
	e.uowFactory = memory.NewUnitOfWorkFactory(e.categories, e.similarities, e.events)
	e.bus = messaging.NewInProcessEventBus(e.logger)

	e.create = commands.NewCreateCategoryHandler(e.categories, e.bus, e.cfg, e.logger)
	e.move = commands.NewMoveCategoryHandler(e.categories, e.bus, e.locks, e.cfg, e.logger)
	removal := sagas.NewCategoryRemovalSaga(e.categories, e.similarities, e.cfg, e.logger)
	e.del = commands.NewDeleteCategoryHandler(removal, e.bus, e.locks, e.logger)
	e.link = commands.NewLinkCategoriesHandler(e.categories, e.similarities, e.uowFactory, e.bus, e.logger)
	e.bulkLink = commands.NewBulkLinkCategoriesHandler(e.categories, e.similarities, e.bus, e.locks, e.cfg, e.logger)
	e.analysis = appservices.NewAnalysisService(
		e.categories,
		e.similarities,
		appservices.StaticDomainConfig{Cfg: e.cfg},
		memory.NewCache(),
		e.bus,
		60,
		e.logger,
	)
	return e
}

// id returns a deterministic UUID so island and path assertions stay stable:
// ascending n means ascending ID order.
func id(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func vid(t *testing.T, n int) valueobjects.CategoryID {
	t.Helper()
	v, err := valueobjects.NewCategoryIDFromString(id(n))
	require.NoError(t, err)
	return v
}

func (e *env) mustCreate(t *testing.T, n int, name, parentID string) {
	t.Helper()
	_, err := e.create.Handle(context.Background(), commands.CreateCategoryCommand{
		CategoryID: id(n),
		Name:       name,
		ParentID:   parentID,
	})
	require.NoError(t, err)
}

func (e *env) mustLink(t *testing.T, a, b int) {
	t.Helper()
	_, err := e.link.Handle(context.Background(), commands.LinkCategoriesCommand{
		CategoryA: id(a),
		CategoryB: id(b),
	})
	require.NoError(t, err)
}

// TestCatalogAnalysisFlow drives the whole path a deployment exercises:
// build a catalog through the command handlers, link similarities, run the
// analysis pipeline, then mutate the tree and verify the analysis tracks it.
func TestCatalogAnalysisFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	// Two trees: Science > {Physics, Chemistry > Organic}, Arts > Music,
	// plus a detached Crafts. Similarity crosses the trees.
	e.mustCreate(t, 1, "Science", "")
	e.mustCreate(t, 2, "Physics", id(1))
	e.mustCreate(t, 3, "Chemistry", id(1))
	e.mustCreate(t, 4, "Arts", "")
	e.mustCreate(t, 5, "Music", id(4))
	e.mustCreate(t, 6, "Crafts", "")
	e.mustCreate(t, 7, "Organic Chemistry", id(3))

	e.mustLink(t, 2, 3)
	e.mustLink(t, 3, 5)

	t.Run("bulk link collects per-pair outcomes", func(t *testing.T) {
		result, err := e.bulkLink.Handle(ctx, commands.BulkLinkCategoriesCommand{
			Pairs: []commands.CategoryPair{
				{CategoryA: id(1), CategoryB: id(4)}, // fine
				{CategoryA: id(2), CategoryB: id(2)}, // self pair
				{CategoryA: id(3), CategoryB: id(2)}, // reversed duplicate of (2,3)
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Requested)
		assert.Equal(t, 1, result.Created)
		require.Len(t, result.Failures, 2)
		assert.Equal(t, "SELF_SIMILARITY", result.Failures[0].Code)
		assert.Equal(t, "DUPLICATE_SIMILARITY", result.Failures[1].Code)

		count, err := e.similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("move under own descendant is rejected", func(t *testing.T) {
		parent := id(7)
		_, err := e.move.Handle(ctx, commands.MoveCategoryCommand{
			CategoryID: id(1),
			ParentID:   &parent,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrMoveUnderDescendant), "got %v", err)
	})

	t.Run("move to valid parent lands", func(t *testing.T) {
		parent := id(1)
		moved, err := e.move.Handle(ctx, commands.MoveCategoryCommand{
			CategoryID: id(5),
			ParentID:   &parent,
		})
		require.NoError(t, err)
		assert.Equal(t, id(1), moved.ParentID().String())

		// Re-parenting never touches the similarity relation.
		count, err := e.similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("full analysis over the catalog", func(t *testing.T) {
		report, err := e.analysis.Analyze(ctx)
		require.NoError(t, err)
		result := report.Result

		// Edges: (2,3), (3,5), (1,4). Islands by size desc: {2,3,5}, {1,4},
		// then the isolated singles {6} and {7} ordered by smallest member.
		require.Len(t, result.Islands, 4)
		assert.Equal(t, []int{3, 2, 1, 1}, result.Stats.IslandSizes)
		assert.Equal(t,
			[]valueobjects.CategoryID{vid(t, 2), vid(t, 3), vid(t, 5)},
			result.Islands[0].Members)
		assert.Equal(t,
			[]valueobjects.CategoryID{vid(t, 1), vid(t, 4)},
			result.Islands[1].Members)

		// Longest rabbit hole: Physics - Chemistry - Music.
		assert.Equal(t, 2, result.Diameter.Length)
		assert.Equal(t,
			[]valueobjects.CategoryID{vid(t, 2), vid(t, 3), vid(t, 5)},
			result.Diameter.Path)

		assert.Equal(t, 7, result.Stats.TotalCategories)
		assert.Equal(t, 3, result.Stats.TotalEdges)
		assert.Equal(t, 2, result.Stats.IsolatedCount)
		assert.Equal(t, 5, result.Stats.ConnectedCount)
		assert.InDelta(t, 6.0/7.0, result.Stats.AverageDegree, 1e-9)

		// Chemistry touches both Physics and Music.
		require.NotEmpty(t, result.Stats.TopConnected)
		assert.Equal(t, vid(t, 3), result.Stats.TopConnected[0].CategoryID)
		assert.Equal(t, 2, result.Stats.TopConnected[0].Degree)
	})

	t.Run("analysis is served from cache for an unchanged snapshot", func(t *testing.T) {
		first, err := e.analysis.Analyze(ctx)
		require.NoError(t, err)
		second, err := e.analysis.Analyze(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.Version, second.Version)
		assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	})

	t.Run("shortest path across trees", func(t *testing.T) {
		_, path, found, err := e.analysis.ShortestPath(ctx, vid(t, 2), vid(t, 5))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t,
			[]valueobjects.CategoryID{vid(t, 2), vid(t, 3), vid(t, 5)},
			path)
	})

	t.Run("no path between islands is found=false", func(t *testing.T) {
		_, path, found, err := e.analysis.ShortestPath(ctx, vid(t, 1), vid(t, 6))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, path)
	})

	t.Run("unknown endpoint is a not-found error", func(t *testing.T) {
		_, _, _, err := e.analysis.ShortestPath(ctx, vid(t, 1), vid(t, 99))
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrCategoryNotFound), "got %v", err)
	})

	t.Run("text report renders the catalog", func(t *testing.T) {
		text, _, err := e.analysis.RenderReport(ctx)
		require.NoError(t, err)
		assert.Contains(t, text, "RABBIT ISLANDS (Connected Components)")
		assert.Contains(t, text, "Found 4 rabbit islands")
		assert.Contains(t, text, "Length: 2 hops")
		assert.Contains(t, text, "Physics → Chemistry → Music")
		assert.Contains(t, text, "Total categories: 7")
	})

	t.Run("delete adopts grandchildren and strips edges", func(t *testing.T) {
		result, err := e.del.Handle(ctx, commands.DeleteCategoryCommand{CategoryID: id(3)})
		require.NoError(t, err)

		assert.Equal(t, []string{id(7)}, result.AdoptedChildren)
		assert.Equal(t, 2, result.RemovedEdges)

		organic, err := e.categories.GetByID(ctx, vid(t, 7))
		require.NoError(t, err)
		assert.Equal(t, id(1), organic.ParentID().String())

		count, err := e.similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("analysis tracks the mutation", func(t *testing.T) {
		report, err := e.analysis.Analyze(ctx)
		require.NoError(t, err)
		result := report.Result

		// Chemistry is gone; only Science-Arts survives. Diameter drops to 1.
		require.Len(t, result.Islands, 5)
		assert.Equal(t, []int{2, 1, 1, 1, 1}, result.Stats.IslandSizes)
		assert.Equal(t, 1, result.Diameter.Length)
		assert.Equal(t,
			[]valueobjects.CategoryID{vid(t, 1), vid(t, 4)},
			result.Diameter.Path)

		_, _, found, err := e.analysis.ShortestPath(ctx, vid(t, 2), vid(t, 5))
		require.NoError(t, err)
		assert.False(t, found)
	})
}

// TestAnalysisOnEmptyAndEdgelessCatalogs pins the two degenerate shapes the
// report layer must tell apart: nothing stored at all versus categories with
// no similarities.
func TestAnalysisOnEmptyAndEdgelessCatalogs(t *testing.T) {
	ctx := context.Background()

	t.Run("empty catalog", func(t *testing.T) {
		e := newEnv(t)

		report, err := e.analysis.Analyze(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Result.Stats.TotalCategories)
		assert.Empty(t, report.Result.Islands)
		assert.Equal(t, 0, report.Result.Diameter.Length)
		assert.Empty(t, report.Result.Diameter.Path)

		text, _, err := e.analysis.RenderReport(ctx)
		require.NoError(t, err)
		assert.Contains(t, text, "No categories found in snapshot.")
	})

	t.Run("edge-less catalog", func(t *testing.T) {
		e := newEnv(t)
		e.mustCreate(t, 1, "Lonely", "")
		e.mustCreate(t, 2, "Also Lonely", "")

		report, err := e.analysis.Analyze(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Result.Stats.TotalCategories)
		require.Len(t, report.Result.Islands, 2)
		assert.Equal(t, 0, report.Result.Diameter.Length)
		assert.Empty(t, report.Result.Diameter.Path)

		text, _, err := e.analysis.RenderReport(ctx)
		require.NoError(t, err)
		assert.Contains(t, text, "No rabbit holes found (no similar categories exist).")
	})
}

// TestLinkCommitsEdgeAndEventTogether verifies the unit of work: the edge
// write and its outbox event land in the same commit.
func TestLinkCommitsEdgeAndEventTogether(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	e.mustCreate(t, 1, "Science", "")
	e.mustCreate(t, 2, "Arts", "")
	e.mustLink(t, 1, 2)

	edge, err := valueobjects.NewSimilarityEdge(vid(t, 1), vid(t, 2))
	require.NoError(t, err)
	exists, err := e.similarities.Exists(ctx, edge)
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err := e.events.GetEventsByType(ctx, "categories.linked", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, edge.First().String(), stored[0].GetAggregateID())
}

// TestConcurrentAnalysisRuns pins the engine's isolation: simultaneous
// analysis calls over the same stores share nothing mutable and all land.
func TestConcurrentAnalysisRuns(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	for n := 1; n <= 10; n++ {
		e.mustCreate(t, n, fmt.Sprintf("Category %02d", n), "")
	}
	for n := 1; n < 10; n++ {
		e.mustLink(t, n, n+1)
	}

	const runs = 8
	results := make(chan error, runs)
	for i := 0; i < runs; i++ {
		go func() {
			report, err := e.analysis.Analyze(ctx)
			if err == nil && report.Result.Diameter.Length != 9 {
				err = fmt.Errorf("unexpected diameter %d", report.Result.Diameter.Length)
			}
			results <- err
		}()
	}
	for i := 0; i < runs; i++ {
		require.NoError(t, <-results)
	}
}
