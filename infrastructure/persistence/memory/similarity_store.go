package memory

import (
	"context"
	"sort"
	"sync"

	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

// SimilarityStore is an in-memory ports.SimilarityRepository keyed by the
// edge's canonical key.
type SimilarityStore struct {
	mu    sync.RWMutex
	edges map[string]valueobjects.SimilarityEdge
}

// NewSimilarityStore creates an empty in-memory similarity store
func NewSimilarityStore() *SimilarityStore {
	return &SimilarityStore{
		edges: make(map[string]valueobjects.SimilarityEdge),
	}
}

// Save persists an edge; saving an existing edge is a no-op
func (s *SimilarityStore) Save(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[edge.Key()]; ok {
		return nil
	}
	s.edges[edge.Key()] = edge
	return nil
}

// Exists reports whether the edge is stored
func (s *SimilarityStore) Exists(ctx context.Context, edge valueobjects.SimilarityEdge) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.edges[edge.Key()]
	return ok, nil
}

// GetAll retrieves every stored edge, sorted by canonical key
func (s *SimilarityStore) GetAll(ctx context.Context) ([]valueobjects.SimilarityEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(valueobjects.SimilarityEdge) bool { return true }), nil
}

// GetByCategoryID retrieves all edges touching a category
func (s *SimilarityStore) GetByCategoryID(ctx context.Context, id valueobjects.CategoryID) ([]valueobjects.SimilarityEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(edge valueobjects.SimilarityEdge) bool {
		return edge.Contains(id)
	}), nil
}

// Delete removes an edge
func (s *SimilarityStore) Delete(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[edge.Key()]; !ok {
		return pkgerrors.ErrSimilarityNotFound.
			WithDetail("category_a", edge.First().String()).
			WithDetail("category_b", edge.Second().String())
	}
	delete(s.edges, edge.Key())
	return nil
}

// DeleteByCategoryID removes all edges touching a category and returns how
// many were removed
func (s *SimilarityStore) DeleteByCategoryID(ctx context.Context, id valueobjects.CategoryID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, edge := range s.edges {
		if edge.Contains(id) {
			delete(s.edges, key)
			removed++
		}
	}
	return removed, nil
}

// BulkSave saves multiple edges, overwriting duplicates silently
func (s *SimilarityStore) BulkSave(ctx context.Context, edges []valueobjects.SimilarityEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, edge := range edges {
		s.edges[edge.Key()] = edge
	}
	return nil
}

// CountAll returns the number of stored edges
func (s *SimilarityStore) CountAll(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges), nil
}

// collect returns all stored edges passing the filter, sorted by canonical
// key for deterministic iteration. Callers hold the lock.
func (s *SimilarityStore) collect(keep func(valueobjects.SimilarityEdge) bool) []valueobjects.SimilarityEdge {
	result := make([]valueobjects.SimilarityEdge, 0, len(s.edges))
	for _, edge := range s.edges {
		if keep(edge) {
			result = append(result, edge)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key() < result[j].Key()
	})
	return result
}
