package services

import (
	"sort"

	"catgraph/domain/config"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

// GraphAnalyticsService hosts the similarity-graph analysis operations.
// This service extracts analytical operations from the aggregates to
// maintain single responsibility: it is pure computation over an
// immutable adjacency, holds no state across calls, and performs no I/O.
type GraphAnalyticsService struct {
	cfg *config.DomainConfig
}

// NewGraphAnalyticsService creates a new graph analytics service
func NewGraphAnalyticsService(cfg *config.DomainConfig) *GraphAnalyticsService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GraphAnalyticsService{cfg: cfg}
}

// Island is one connected component of the similarity graph.
// Members are sorted ascending by ID.
type Island struct {
	Members []valueobjects.CategoryID `json:"members"`
}

// Size returns the number of categories in the island
func (i Island) Size() int {
	return len(i.Members)
}

// Contains reports whether the island includes the given category
func (i Island) Contains(id valueobjects.CategoryID) bool {
	pos := sort.Search(len(i.Members), func(k int) bool { return !i.Members[k].Less(id) })
	return pos < len(i.Members) && i.Members[pos].Equals(id)
}

// FindIslands partitions the graph into connected components using a
// multi-source BFS flood fill, O(V+E). Every category lands in exactly
// one island; size-1 islands are legitimate. The returned slice is
// sorted by size descending, ties by smallest member ID, and members
// within an island are sorted ascending, so callers always observe the
// same presentation order for the same graph.
func (s *GraphAnalyticsService) FindIslands(adj *Adjacency) []Island {
	visited := make(map[valueobjects.CategoryID]bool, adj.Size())
	islands := []Island{}

	for _, start := range adj.ids {
		if visited[start] {
			continue
		}

		members := []valueobjects.CategoryID{start}
		visited[start] = true
		queue := []valueobjects.CategoryID{start}

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			for _, neighbor := range adj.neighbors[current] {
				if !visited[neighbor] {
					visited[neighbor] = true
					members = append(members, neighbor)
					queue = append(queue, neighbor)
				}
			}
		}

		sort.Slice(members, func(i, j int) bool { return members[i].Less(members[j]) })
		islands = append(islands, Island{Members: members})
	}

	sort.Slice(islands, func(i, j int) bool {
		if len(islands[i].Members) != len(islands[j].Members) {
			return len(islands[i].Members) > len(islands[j].Members)
		}
		return islands[i].Members[0].Less(islands[j].Members[0])
	})

	return islands
}

// ShortestPath finds a minimum-hop path between two categories using
// BFS with parent tracking. A missing path is a legitimate outcome, not
// an error: the two categories live on different islands and found is
// false. Unknown endpoints are a reference violation. from == to yields
// the single-element path with zero hops.
func (s *GraphAnalyticsService) ShortestPath(adj *Adjacency, from, to valueobjects.CategoryID) ([]valueobjects.CategoryID, bool, error) {
	if !adj.Has(from) {
		return nil, false, pkgerrors.ErrUnknownCategory.WithDetail("category_id", from.String())
	}
	if !adj.Has(to) {
		return nil, false, pkgerrors.ErrUnknownCategory.WithDetail("category_id", to.String())
	}

	if from.Equals(to) {
		return []valueobjects.CategoryID{from}, true, nil
	}

	visited := map[valueobjects.CategoryID]bool{from: true}
	parent := make(map[valueobjects.CategoryID]valueobjects.CategoryID)
	queue := []valueobjects.CategoryID{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adj.neighbors[current] {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			parent[neighbor] = current
			queue = append(queue, neighbor)

			if neighbor.Equals(to) {
				return s.reconstructPath(from, to, parent), true, nil
			}
		}
	}

	return nil, false, nil
}

// reconstructPath walks parent pointers back from end to start and
// reverses the result
func (s *GraphAnalyticsService) reconstructPath(
	start, end valueobjects.CategoryID,
	parent map[valueobjects.CategoryID]valueobjects.CategoryID,
) []valueobjects.CategoryID {
	path := []valueobjects.CategoryID{end}
	for current := end; !current.Equals(start); {
		current = parent[current]
		path = append(path, current)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
