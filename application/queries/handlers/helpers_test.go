package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catgraph/application/queries"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/infrastructure/persistence/memory"
)

// catalogFixture seeds the forest shared by the query tests:
//
//	Electronics (1)
//	  Phones (3)
//	  Laptops (4)
//	    Gaming Laptops (5)
//	Garden (2)
//	Books (6)
//
// with similarity edges Phones-Laptops and Laptops-Books.
type catalogFixture struct {
	categories   *memory.CategoryStore
	similarities *memory.SimilarityStore
	logger       *zap.Logger
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	f := &catalogFixture{
		categories:   memory.NewCategoryStore(),
		similarities: memory.NewSimilarityStore(),
		logger:       zap.NewNop(),
	}
	f.seed(t, 1, "Electronics", 0)
	f.seed(t, 2, "Garden", 0)
	f.seed(t, 3, "Phones", 1)
	f.seed(t, 4, "Laptops", 1)
	f.seed(t, 5, "Gaming Laptops", 4)
	f.seed(t, 6, "Books", 0)
	f.link(t, 3, 4)
	f.link(t, 4, 6)
	return f
}

// seed stores one category; parent 0 makes it a root.
func (f *catalogFixture) seed(t *testing.T, n int, name string, parent int) *entities.Category {
	t.Helper()
	label, err := valueobjects.NewCategoryLabel(name, "")
	require.NoError(t, err)
	parentID := valueobjects.CategoryID{}
	if parent > 0 {
		parentID = testID(t, parent)
	}
	category, err := entities.NewCategoryWithID(testID(t, n), label, parentID)
	require.NoError(t, err)
	category.MarkEventsAsCommitted()
	require.NoError(t, f.categories.Save(context.Background(), category))
	return category
}

func (f *catalogFixture) link(t *testing.T, a, b int) valueobjects.SimilarityEdge {
	t.Helper()
	edge, err := valueobjects.NewSimilarityEdge(testID(t, a), testID(t, b))
	require.NoError(t, err)
	require.NoError(t, f.similarities.Save(context.Background(), edge))
	return edge
}

func testID(t *testing.T, n int) valueobjects.CategoryID {
	t.Helper()
	id, err := valueobjects.NewCategoryIDFromString(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	require.NoError(t, err)
	return id
}

// viewNames projects category views onto their names, the handiest
// shape for order assertions.
func viewNames(views []queries.CategoryView) []string {
	names := make([]string, len(views))
	for i, view := range views {
		names[i] = view.Name
	}
	return names
}
