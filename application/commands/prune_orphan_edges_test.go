package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catgraph/domain/core/valueobjects"
)

func newPruneHandler(env *testEnv) *PruneOrphanEdgesHandler {
	return NewPruneOrphanEdgesHandler(env.categories, env.similarities, env.bus, env.logger)
}

// orphanFixture seeds three linked categories and then drops one behind the
// handlers' backs, leaving two of the three edges dangling.
func orphanFixture(t *testing.T, env *testEnv) (kept, doomed valueobjects.CategoryID) {
	t.Helper()
	ctx := context.Background()

	a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
	b := env.seedCategory(t, 2, "Garden", valueobjects.CategoryID{})
	c := env.seedCategory(t, 3, "Books", valueobjects.CategoryID{})
	env.seedEdge(t, a.ID(), b.ID())
	env.seedEdge(t, a.ID(), c.ID())
	env.seedEdge(t, b.ID(), c.ID())

	require.NoError(t, env.categories.Delete(ctx, c.ID()))
	return a.ID(), c.ID()
}

func TestPruneOrphanEdgesHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run reports orphans without touching them", func(t *testing.T) {
		env := newTestEnv(t)
		_, doomed := orphanFixture(t, env)

		result, err := newPruneHandler(env).Handle(ctx, PruneOrphanEdgesCommand{DryRun: true})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Scanned)
		assert.Zero(t, result.Removed)
		assert.True(t, result.DryRun)
		require.Len(t, result.Orphans, 2)
		for _, orphan := range result.Orphans {
			assert.Equal(t, []string{doomed.String()}, orphan.Missing)
		}

		count, err := env.similarities.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count, "a dry run leaves the edges in place")
		assert.Empty(t, env.published.typesSeen())
	})

	t.Run("removes orphans and announces each removal", func(t *testing.T) {
		env := newTestEnv(t)
		kept, _ := orphanFixture(t, env)

		result, err := newPruneHandler(env).Handle(ctx, PruneOrphanEdgesCommand{})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Scanned)
		assert.Equal(t, 2, result.Removed)
		assert.False(t, result.DryRun)
		assert.Len(t, result.Orphans, 2)

		survivors, err := env.similarities.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, survivors, 1)
		assert.True(t, survivors[0].Contains(kept))

		assert.Equal(t, []string{"categories.unlinked", "categories.unlinked"}, env.published.typesSeen())
	})

	t.Run("a healthy graph yields nothing to prune", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.seedCategory(t, 1, "Electronics", valueobjects.CategoryID{})
		b := env.seedCategory(t, 2, "Garden", valueobjects.CategoryID{})
		env.seedEdge(t, a.ID(), b.ID())

		result, err := newPruneHandler(env).Handle(ctx, PruneOrphanEdgesCommand{})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Scanned)
		assert.Empty(t, result.Orphans)
		assert.Zero(t, result.Removed)
		assert.Empty(t, env.published.typesSeen())
	})
}
