package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
)

// testID returns a deterministic UUID so ordering assertions stay stable.
func testID(t *testing.T, n int) valueobjects.CategoryID {
	t.Helper()
	id, err := valueobjects.NewCategoryIDFromString(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	require.NoError(t, err)
	return id
}

func newCategory(t *testing.T, n int, name string, parent valueobjects.CategoryID) *entities.Category {
	t.Helper()
	label, err := valueobjects.NewCategoryLabel(name, "")
	require.NoError(t, err)
	category, err := entities.NewCategoryWithID(testID(t, n), label, parent)
	require.NoError(t, err)
	return category
}

func newEdge(t *testing.T, a, b valueobjects.CategoryID) valueobjects.SimilarityEdge {
	t.Helper()
	edge, err := valueobjects.NewSimilarityEdge(a, b)
	require.NoError(t, err)
	return edge
}
