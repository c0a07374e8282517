package common

import (
	"net/http"
	"strconv"
)

// MaxPageSize caps page_size so a single request cannot drag the whole
// category table through one response.
const MaxPageSize = 100

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Sort     string `json:"sort,omitempty"`
	Order    string `json:"order,omitempty"`
}

// DefaultPaginationParams returns default pagination parameters. Category
// listings read most naturally by name, so that is the default sort.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Page:     1,
		PageSize: 20,
		Sort:     "name",
		Order:    "asc",
	}
}

// ExtractPaginationParams extracts pagination parameters from request
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil && ps > 0 {
			if ps > MaxPageSize {
				ps = MaxPageSize
			}
			params.PageSize = ps
		}
	}

	if sort := r.URL.Query().Get("sort"); sort != "" {
		params.Sort = sort
	}

	if order := r.URL.Query().Get("order"); order == "asc" || order == "desc" {
		params.Order = order
	}

	return params
}

// NormalizeSort restricts the sort field to an allow-list, falling back to
// the first allowed field when the requested one is unknown.
func (p PaginationParams) NormalizeSort(allowed ...string) PaginationParams {
	if len(allowed) == 0 {
		return p
	}
	for _, field := range allowed {
		if p.Sort == field {
			return p
		}
	}
	p.Sort = allowed[0]
	return p
}

// CalculateOffset calculates the offset for store queries
func (p PaginationParams) CalculateOffset() int {
	return (p.Page - 1) * p.PageSize
}

// Window returns the half-open slice bounds [lo, hi) for applying these
// parameters to an in-memory list of the given length. Callers slice their
// already-sorted data with items[lo:hi].
func (p PaginationParams) Window(total int) (int, int) {
	lo := p.CalculateOffset()
	if lo >= total {
		return total, total
	}
	hi := lo + p.PageSize
	if hi > total {
		hi = total
	}
	return lo, hi
}

// CalculateTotalPages calculates total number of pages
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// BuildPaginationMeta builds pagination metadata
func BuildPaginationMeta(page, pageSize, total int) *PaginationInfo {
	totalPages := CalculateTotalPages(total, pageSize)

	return &PaginationInfo{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// PaginatedResult represents a paginated result
type PaginatedResult struct {
	Items      interface{}     `json:"items"`
	Pagination *PaginationInfo `json:"pagination"`
}

// NewPaginatedResult creates a new paginated result
func NewPaginatedResult(items interface{}, page, pageSize, total int) *PaginatedResult {
	return &PaginatedResult{
		Items:      items,
		Pagination: BuildPaginationMeta(page, pageSize, total),
	}
}
