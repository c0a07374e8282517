package queries

import (
	"errors"
	"fmt"
)

// ListCategoriesQuery represents a paginated catalog listing. Search
// matches the name case-insensitively; ParentID filters to one node's
// children; RootsOnly restricts to the forest roots.
type ListCategoriesQuery struct {
	Search    string `json:"search,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
	RootsOnly bool   `json:"roots_only,omitempty"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by,omitempty"`
	SortDesc  bool   `json:"sort_desc,omitempty"`
}

// Validate validates the ListCategoriesQuery
func (q ListCategoriesQuery) Validate() error {
	if q.Page < 0 || q.PageSize < 0 {
		return errors.New("page and page size cannot be negative")
	}
	if q.ParentID != "" && q.RootsOnly {
		return errors.New("parent filter and roots filter are mutually exclusive")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q ListCategoriesQuery) CacheKey() string {
	return fmt.Sprintf("category:list:%s:%s:%t:%d:%d:%s:%t",
		q.Search, q.ParentID, q.RootsOnly, q.Page, q.PageSize, q.SortBy, q.SortDesc)
}

// ListCategoriesResult is one page of the catalog
type ListCategoriesResult struct {
	Items      []CategoryView `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	HasMore    bool           `json:"has_more"`
}
