package queries

// GetTreeQuery requests the full category forest with nested children
type GetTreeQuery struct{}

// Validate validates the GetTreeQuery
func (q GetTreeQuery) Validate() error {
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetTreeQuery) CacheKey() string {
	return "category:tree"
}

// TreeNode is one category with its subtree. Children are ordered by
// ascending ID, matching the taxonomy's child index.
type TreeNode struct {
	CategoryView
	Children []TreeNode `json:"children"`
}

// GetTreeResult is the whole forest
type GetTreeResult struct {
	Roots []TreeNode `json:"roots"`
	Total int        `json:"total"`
}
