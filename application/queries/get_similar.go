package queries

import "errors"

// GetSimilarQuery requests the categories directly similar to one
// category, with labels resolved
type GetSimilarQuery struct {
	CategoryID string `json:"category_id"`
}

// Validate validates the GetSimilarQuery
func (q GetSimilarQuery) Validate() error {
	if q.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetSimilarQuery) CacheKey() string {
	return "similarity:neighbors:" + q.CategoryID
}

// GetSimilarResult lists the direct similarity neighbors of a category
// in ascending ID order
type GetSimilarResult struct {
	CategoryID string         `json:"category_id"`
	Similar    []CategoryView `json:"similar"`
}
