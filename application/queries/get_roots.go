package queries

// GetRootsQuery requests the root categories in ascending ID order
type GetRootsQuery struct{}

// Validate validates the GetRootsQuery
func (q GetRootsQuery) Validate() error {
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetRootsQuery) CacheKey() string {
	return "category:roots"
}

// GetRootsResult lists the forest roots
type GetRootsResult struct {
	Roots []CategoryView `json:"roots"`
}
