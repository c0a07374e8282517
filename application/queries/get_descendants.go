package queries

import "errors"

// GetDescendantsQuery requests every category below one node
type GetDescendantsQuery struct {
	CategoryID string `json:"category_id"`
}

// Validate validates the GetDescendantsQuery
func (q GetDescendantsQuery) Validate() error {
	if q.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetDescendantsQuery) CacheKey() string {
	return "category:descendants:" + q.CategoryID
}

// GetDescendantsResult lists the whole subtree below a category,
// breadth-first, each node exactly once
type GetDescendantsResult struct {
	CategoryID  string         `json:"category_id"`
	Count       int            `json:"count"`
	Descendants []CategoryView `json:"descendants"`
}
