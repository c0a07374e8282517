package queries

import "errors"

// GetChildrenQuery requests the direct children of one category
type GetChildrenQuery struct {
	CategoryID string `json:"category_id"`
}

// Validate validates the GetChildrenQuery
func (q GetChildrenQuery) Validate() error {
	if q.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetChildrenQuery) CacheKey() string {
	return "category:children:" + q.CategoryID
}

// GetChildrenResult lists one category's direct children
type GetChildrenResult struct {
	CategoryID string         `json:"category_id"`
	Children   []CategoryView `json:"children"`
}
