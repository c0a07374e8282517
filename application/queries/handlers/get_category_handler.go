package handlers

import (
	"context"
	"sort"

	"catgraph/application/ports"
	"catgraph/application/queries"
	"catgraph/domain/config"
	"catgraph/domain/core/aggregates"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"

	"go.uber.org/zap"
)

// GetCategoryHandler assembles the category detail view: the category
// itself, its ancestor chain, direct children and similarity neighbors
type GetCategoryHandler struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	cfg            *config.DomainConfig
	logger         *zap.Logger
}

// NewGetCategoryHandler creates a new category detail handler
func NewGetCategoryHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *GetCategoryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GetCategoryHandler{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// Handle executes the category detail query
func (h *GetCategoryHandler) Handle(ctx context.Context, query queries.GetCategoryQuery) (*queries.GetCategoryResult, error) {
	id, err := valueobjects.NewCategoryIDFromString(query.CategoryID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid category ID")
	}

	taxonomy, err := loadTaxonomy(ctx, h.categoryRepo, h.cfg)
	if err != nil {
		return nil, err
	}

	category, err := taxonomy.GetCategory(id)
	if err != nil {
		return nil, err
	}

	ancestorIDs, err := taxonomy.Ancestors(id)
	if err != nil {
		return nil, err
	}
	childIDs, err := taxonomy.Children(id)
	if err != nil {
		return nil, err
	}

	result := &queries.GetCategoryResult{
		Category:  queries.NewCategoryView(category),
		Depth:     len(ancestorIDs),
		Ancestors: make([]queries.CategoryView, 0, len(ancestorIDs)),
		Children:  make([]queries.CategoryView, 0, len(childIDs)),
	}

	for _, ancestorID := range ancestorIDs {
		ancestor, err := taxonomy.GetCategory(ancestorID)
		if err != nil {
			return nil, err
		}
		result.Ancestors = append(result.Ancestors, queries.NewCategoryView(ancestor))
	}
	for _, childID := range childIDs {
		child, err := taxonomy.GetCategory(childID)
		if err != nil {
			return nil, err
		}
		result.Children = append(result.Children, queries.NewCategoryView(child))
	}

	similar, err := h.resolveSimilar(ctx, taxonomy, id)
	if err != nil {
		return nil, err
	}
	result.Similar = similar

	h.logger.Debug("Category detail assembled",
		zap.String("category_id", query.CategoryID),
		zap.Int("ancestors", len(result.Ancestors)),
		zap.Int("children", len(result.Children)),
		zap.Int("similar", len(result.Similar)),
	)

	return result, nil
}

// resolveSimilar maps the edges touching a category to neighbor views.
// An edge endpoint missing from the catalog means the store is
// inconsistent; that is surfaced, never silently dropped.
func (h *GetCategoryHandler) resolveSimilar(
	ctx context.Context,
	taxonomy *aggregates.Taxonomy,
	id valueobjects.CategoryID,
) ([]queries.CategoryView, error) {
	edges, err := h.similarityRepo.GetByCategoryID(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]queries.CategoryView, 0, len(edges))
	for _, edge := range edges {
		neighborID, ok := edge.Other(id)
		if !ok {
			continue
		}
		neighbor, err := taxonomy.GetCategory(neighborID)
		if err != nil {
			return nil, pkgerrors.ErrSnapshotInconsistent.
				WithDetail("missing_endpoint", neighborID.String()).
				WithCause(err)
		}
		views = append(views, queries.NewCategoryView(neighbor))
	}

	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}
