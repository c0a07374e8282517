package handlers

import (
	"context"
	"sort"

	"catgraph/application/ports"
	"catgraph/application/queries"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"

	"go.uber.org/zap"
)

// SimilarityQueryHandler answers the similarity catalog queries: a
// category's direct neighbors with labels, and the raw edges touching it
type SimilarityQueryHandler struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	logger         *zap.Logger
}

// NewSimilarityQueryHandler creates a new similarity query handler
func NewSimilarityQueryHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	logger *zap.Logger,
) *SimilarityQueryHandler {
	return &SimilarityQueryHandler{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		logger:         logger,
	}
}

// HandleGetSimilar resolves the direct neighbors of one category
func (h *SimilarityQueryHandler) HandleGetSimilar(ctx context.Context, query queries.GetSimilarQuery) (*queries.GetSimilarResult, error) {
	id, edges, err := h.edgesFor(ctx, query.CategoryID)
	if err != nil {
		return nil, err
	}

	byID := make(map[valueobjects.CategoryID]*entities.Category)
	if len(edges) > 0 {
		categories, err := h.categoryRepo.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		for _, category := range categories {
			byID[category.ID()] = category
		}
	}

	views := make([]queries.CategoryView, 0, len(edges))
	for _, edge := range edges {
		neighborID, ok := edge.Other(id)
		if !ok {
			continue
		}
		neighbor, ok := byID[neighborID]
		if !ok {
			return nil, pkgerrors.ErrSnapshotInconsistent.
				WithDetail("missing_endpoint", neighborID.String())
		}
		views = append(views, queries.NewCategoryView(neighbor))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })

	return &queries.GetSimilarResult{
		CategoryID: query.CategoryID,
		Similar:    views,
	}, nil
}

// HandleListSimilarities lists the canonical edges touching one category
func (h *SimilarityQueryHandler) HandleListSimilarities(ctx context.Context, query queries.ListSimilaritiesQuery) (*queries.ListSimilaritiesResult, error) {
	_, edges, err := h.edgesFor(ctx, query.CategoryID)
	if err != nil {
		return nil, err
	}

	views := make([]queries.SimilarityEdgeView, 0, len(edges))
	for _, edge := range edges {
		views = append(views, queries.SimilarityEdgeView{
			CategoryA: edge.First().String(),
			CategoryB: edge.Second().String(),
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CategoryA != views[j].CategoryA {
			return views[i].CategoryA < views[j].CategoryA
		}
		return views[i].CategoryB < views[j].CategoryB
	})

	return &queries.ListSimilaritiesResult{
		CategoryID: query.CategoryID,
		Edges:      views,
	}, nil
}

// edgesFor parses the ID, checks the category exists and loads its edges
func (h *SimilarityQueryHandler) edgesFor(ctx context.Context, rawID string) (valueobjects.CategoryID, []valueobjects.SimilarityEdge, error) {
	id, err := valueobjects.NewCategoryIDFromString(rawID)
	if err != nil {
		return valueobjects.CategoryID{}, nil, pkgerrors.NewValidationError("invalid category ID")
	}
	if _, err := h.categoryRepo.GetByID(ctx, id); err != nil {
		return valueobjects.CategoryID{}, nil, err
	}

	edges, err := h.similarityRepo.GetByCategoryID(ctx, id)
	if err != nil {
		return valueobjects.CategoryID{}, nil, err
	}
	return id, edges, nil
}
