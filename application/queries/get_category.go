package queries

import "errors"

// GetCategoryQuery represents a query for one category with its
// surroundings: ancestor chain, direct children and similar categories
type GetCategoryQuery struct {
	CategoryID string `json:"category_id"`
}

// Validate validates the GetCategoryQuery
func (q GetCategoryQuery) Validate() error {
	if q.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetCategoryQuery) CacheKey() string {
	return "category:detail:" + q.CategoryID
}

// GetCategoryResult is the detail view of a category
type GetCategoryResult struct {
	Category  CategoryView   `json:"category"`
	Depth     int            `json:"depth"`
	Ancestors []CategoryView `json:"ancestors"`
	Children  []CategoryView `json:"children"`
	Similar   []CategoryView `json:"similar"`
}
