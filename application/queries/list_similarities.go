package queries

import "errors"

// ListSimilaritiesQuery requests the similarity edges touching one
// category
type ListSimilaritiesQuery struct {
	CategoryID string `json:"category_id"`
}

// Validate validates the ListSimilaritiesQuery
func (q ListSimilaritiesQuery) Validate() error {
	if q.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q ListSimilaritiesQuery) CacheKey() string {
	return "similarity:edges:" + q.CategoryID
}

// SimilarityEdgeView is one canonical edge in query results
type SimilarityEdgeView struct {
	CategoryA string `json:"category_a"`
	CategoryB string `json:"category_b"`
}

// ListSimilaritiesResult lists the canonical edges touching a category
type ListSimilaritiesResult struct {
	CategoryID string               `json:"category_id"`
	Edges      []SimilarityEdgeView `json:"edges"`
}
