package queries

import "errors"

// GetAncestorsQuery requests the parent chain of one category,
// ordered root-first
type GetAncestorsQuery struct {
	CategoryID string `json:"category_id"`
}

// Validate validates the GetAncestorsQuery
func (q GetAncestorsQuery) Validate() error {
	if q.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetAncestorsQuery) CacheKey() string {
	return "category:ancestors:" + q.CategoryID
}

// GetAncestorsResult is the root-first parent chain. Depth equals the
// number of ancestors; roots have zero.
type GetAncestorsResult struct {
	CategoryID string         `json:"category_id"`
	Depth      int            `json:"depth"`
	Ancestors  []CategoryView `json:"ancestors"`
}
