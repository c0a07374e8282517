package services

import (
	"sort"

	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

// Adjacency is the derived similarity graph for one analysis run: every
// category ID maps to the set of directly-similar IDs. It is built fresh
// from a snapshot, never stored, and never mutated after construction.
// Neighbor lists are kept sorted ascending so every traversal expands
// frontiers in a fixed order.
type Adjacency struct {
	index     map[valueobjects.CategoryID]map[valueobjects.CategoryID]struct{}
	neighbors map[valueobjects.CategoryID][]valueobjects.CategoryID
	ids       []valueobjects.CategoryID
	edgeCount int
}

// BuildAdjacency constructs the similarity graph from a snapshot's
// category IDs and canonical edges. Every supplied ID is represented,
// isolated ones with an empty neighbor set. An edge endpoint missing
// from ids fails the whole build: the snapshot is inconsistent and no
// partial result is returned. Duplicate and reversed-duplicate edges
// are no-ops.
func BuildAdjacency(ids []valueobjects.CategoryID, edges []valueobjects.SimilarityEdge) (*Adjacency, error) {
	adj := &Adjacency{
		index:     make(map[valueobjects.CategoryID]map[valueobjects.CategoryID]struct{}, len(ids)),
		neighbors: make(map[valueobjects.CategoryID][]valueobjects.CategoryID, len(ids)),
	}

	for _, id := range ids {
		if _, exists := adj.index[id]; exists {
			continue
		}
		adj.index[id] = make(map[valueobjects.CategoryID]struct{})
		adj.ids = append(adj.ids, id)
	}

	for _, edge := range edges {
		first, second := edge.First(), edge.Second()
		if _, known := adj.index[first]; !known {
			return nil, pkgerrors.ErrUnknownCategory.WithDetail("category_id", first.String())
		}
		if _, known := adj.index[second]; !known {
			return nil, pkgerrors.ErrUnknownCategory.WithDetail("category_id", second.String())
		}
		if first.Equals(second) {
			return nil, pkgerrors.ErrSelfSimilarity.WithDetail("category_id", first.String())
		}
		if _, dup := adj.index[first][second]; dup {
			continue
		}
		adj.index[first][second] = struct{}{}
		adj.index[second][first] = struct{}{}
		adj.edgeCount++
	}

	sort.Slice(adj.ids, func(i, j int) bool { return adj.ids[i].Less(adj.ids[j]) })
	for id, set := range adj.index {
		list := make([]valueobjects.CategoryID, 0, len(set))
		for neighbor := range set {
			list = append(list, neighbor)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
		adj.neighbors[id] = list
	}

	return adj, nil
}

// Size returns the number of categories in the graph
func (a *Adjacency) Size() int {
	return len(a.ids)
}

// EdgeCount returns the number of distinct similarity edges
func (a *Adjacency) EdgeCount() int {
	return a.edgeCount
}

// Has reports whether the graph contains the given category
func (a *Adjacency) Has(id valueobjects.CategoryID) bool {
	_, exists := a.index[id]
	return exists
}

// IDs returns all category IDs in ascending order
func (a *Adjacency) IDs() []valueobjects.CategoryID {
	ids := make([]valueobjects.CategoryID, len(a.ids))
	copy(ids, a.ids)
	return ids
}

// Neighbors returns the directly-similar categories in ascending order
func (a *Adjacency) Neighbors(id valueobjects.CategoryID) []valueobjects.CategoryID {
	list := a.neighbors[id]
	neighbors := make([]valueobjects.CategoryID, len(list))
	copy(neighbors, list)
	return neighbors
}

// Degree returns the number of direct neighbors of a category
func (a *Adjacency) Degree(id valueobjects.CategoryID) int {
	return len(a.neighbors[id])
}

// Adjacent reports whether two categories are directly similar
func (a *Adjacency) Adjacent(x, y valueobjects.CategoryID) bool {
	_, exists := a.index[x][y]
	return exists
}
