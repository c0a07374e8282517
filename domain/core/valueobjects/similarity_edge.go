package valueobjects

import (
	"errors"

	pkgerrors "catgraph/pkg/errors"
)

// SimilarityEdge is a value object for an undirected similarity link
// between two categories. Edges are stored canonically: First orders
// lexicographically before Second, so (a,b) and (b,a) are the same edge.
type SimilarityEdge struct {
	first  CategoryID
	second CategoryID
}

// NewSimilarityEdge creates a canonical edge between two categories.
// The operand order does not matter; self-links are rejected.
func NewSimilarityEdge(a, b CategoryID) (SimilarityEdge, error) {
	if a.IsZero() || b.IsZero() {
		return SimilarityEdge{}, errors.New("similarity edge requires two category IDs")
	}
	if a.Equals(b) {
		return SimilarityEdge{}, pkgerrors.ErrSelfSimilarity
	}
	if b.Less(a) {
		a, b = b, a
	}
	return SimilarityEdge{first: a, second: b}, nil
}

// First returns the lexicographically smaller endpoint
func (e SimilarityEdge) First() CategoryID {
	return e.first
}

// Second returns the lexicographically larger endpoint
func (e SimilarityEdge) Second() CategoryID {
	return e.second
}

// Equals checks if two edges connect the same pair
func (e SimilarityEdge) Equals(other SimilarityEdge) bool {
	return e.first.Equals(other.first) && e.second.Equals(other.second)
}

// Contains reports whether id is one of the edge endpoints
func (e SimilarityEdge) Contains(id CategoryID) bool {
	return e.first.Equals(id) || e.second.Equals(id)
}

// Other returns the endpoint opposite to id. The boolean is false when
// id is not part of the edge.
func (e SimilarityEdge) Other(id CategoryID) (CategoryID, bool) {
	switch {
	case e.first.Equals(id):
		return e.second, true
	case e.second.Equals(id):
		return e.first, true
	default:
		return CategoryID{}, false
	}
}

// Key returns a stable map key for the canonical pair
func (e SimilarityEdge) Key() string {
	return e.first.String() + "|" + e.second.String()
}

// IsZero checks if the edge is the zero value
func (e SimilarityEdge) IsZero() bool {
	return e.first.IsZero() && e.second.IsZero()
}
