package handlers

import (
	"context"

	"catgraph/application/ports"
	"catgraph/application/queries"
	"catgraph/domain/core/valueobjects"
	"catgraph/pkg/common"
	pkgerrors "catgraph/pkg/errors"

	"go.uber.org/zap"
)

// ListCategoriesHandler serves paginated catalog listings
type ListCategoriesHandler struct {
	categoryRepo ports.CategoryRepository
	logger       *zap.Logger
}

// NewListCategoriesHandler creates a new listing handler
func NewListCategoriesHandler(categoryRepo ports.CategoryRepository, logger *zap.Logger) *ListCategoriesHandler {
	return &ListCategoriesHandler{
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

// Handle executes the listing query
func (h *ListCategoriesHandler) Handle(ctx context.Context, query queries.ListCategoriesQuery) (*queries.ListCategoriesResult, error) {
	params := common.DefaultPaginationParams()
	if query.Page > 0 {
		params.Page = query.Page
	}
	if query.PageSize > 0 {
		params.PageSize = query.PageSize
		if params.PageSize > common.MaxPageSize {
			params.PageSize = common.MaxPageSize
		}
	}
	if query.SortBy != "" {
		params.Sort = query.SortBy
	}
	if query.SortDesc {
		params.Order = "desc"
	}
	params = params.NormalizeSort("name", "created_at", "updated_at")

	criteria := ports.ListCriteria{
		Search:    query.Search,
		RootsOnly: query.RootsOnly,
		Limit:     params.PageSize,
		Offset:    params.CalculateOffset(),
		OrderBy:   params.Sort,
		OrderDesc: params.Order == "desc",
	}
	if query.ParentID != "" {
		parentID, err := valueobjects.NewCategoryIDFromString(query.ParentID)
		if err != nil {
			return nil, pkgerrors.NewValidationError("invalid parent ID")
		}
		criteria.ParentID = parentID
	}

	items, total, err := h.categoryRepo.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}

	totalPages := common.CalculateTotalPages(total, params.PageSize)
	result := &queries.ListCategoriesResult{
		Items:      queries.NewCategoryViews(items),
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasMore:    params.Page < totalPages,
	}

	h.logger.Debug("Catalog listing served",
		zap.Int("returned", len(result.Items)),
		zap.Int("total", total),
		zap.Int("page", params.Page),
	)

	return result, nil
}
