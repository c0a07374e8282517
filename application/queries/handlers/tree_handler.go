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

// TreeQueryHandler answers the hierarchy navigation queries: the full
// forest, roots, children, ancestors and descendants. Navigation that
// walks parent or child chains builds the taxonomy aggregate; the
// single-hop lookups go straight to the repository.
type TreeQueryHandler struct {
	categoryRepo ports.CategoryRepository
	cfg          *config.DomainConfig
	logger       *zap.Logger
}

// NewTreeQueryHandler creates a new tree navigation handler
func NewTreeQueryHandler(categoryRepo ports.CategoryRepository, cfg *config.DomainConfig, logger *zap.Logger) *TreeQueryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &TreeQueryHandler{
		categoryRepo: categoryRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// HandleGetTree builds the full nested forest
func (h *TreeQueryHandler) HandleGetTree(ctx context.Context, query queries.GetTreeQuery) (*queries.GetTreeResult, error) {
	taxonomy, err := loadTaxonomy(ctx, h.categoryRepo, h.cfg)
	if err != nil {
		return nil, err
	}

	roots := taxonomy.Roots()
	result := &queries.GetTreeResult{
		Roots: make([]queries.TreeNode, 0, len(roots)),
		Total: taxonomy.Size(),
	}
	for _, rootID := range roots {
		node, err := h.buildSubtree(taxonomy, rootID)
		if err != nil {
			return nil, err
		}
		result.Roots = append(result.Roots, node)
	}

	return result, nil
}

// buildSubtree assembles one node and, recursively, everything below it
func (h *TreeQueryHandler) buildSubtree(taxonomy *aggregates.Taxonomy, id valueobjects.CategoryID) (queries.TreeNode, error) {
	category, err := taxonomy.GetCategory(id)
	if err != nil {
		return queries.TreeNode{}, err
	}
	childIDs, err := taxonomy.Children(id)
	if err != nil {
		return queries.TreeNode{}, err
	}

	node := queries.TreeNode{
		CategoryView: queries.NewCategoryView(category),
		Children:     make([]queries.TreeNode, 0, len(childIDs)),
	}
	for _, childID := range childIDs {
		child, err := h.buildSubtree(taxonomy, childID)
		if err != nil {
			return queries.TreeNode{}, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// HandleGetRoots lists the forest roots
func (h *TreeQueryHandler) HandleGetRoots(ctx context.Context, query queries.GetRootsQuery) (*queries.GetRootsResult, error) {
	roots, err := h.categoryRepo.GetRoots(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID().Less(roots[j].ID()) })
	return &queries.GetRootsResult{Roots: queries.NewCategoryViews(roots)}, nil
}

// HandleGetChildren lists the direct children of one category
func (h *TreeQueryHandler) HandleGetChildren(ctx context.Context, query queries.GetChildrenQuery) (*queries.GetChildrenResult, error) {
	id, err := valueobjects.NewCategoryIDFromString(query.CategoryID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid category ID")
	}
	if _, err := h.categoryRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	children, err := h.categoryRepo.GetByParentID(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID().Less(children[j].ID()) })

	return &queries.GetChildrenResult{
		CategoryID: query.CategoryID,
		Children:   queries.NewCategoryViews(children),
	}, nil
}

// HandleGetAncestors walks the parent chain root-first
func (h *TreeQueryHandler) HandleGetAncestors(ctx context.Context, query queries.GetAncestorsQuery) (*queries.GetAncestorsResult, error) {
	id, err := valueobjects.NewCategoryIDFromString(query.CategoryID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid category ID")
	}

	taxonomy, err := loadTaxonomy(ctx, h.categoryRepo, h.cfg)
	if err != nil {
		return nil, err
	}
	ancestorIDs, err := taxonomy.Ancestors(id)
	if err != nil {
		return nil, err
	}

	result := &queries.GetAncestorsResult{
		CategoryID: query.CategoryID,
		Depth:      len(ancestorIDs),
		Ancestors:  make([]queries.CategoryView, 0, len(ancestorIDs)),
	}
	for _, ancestorID := range ancestorIDs {
		ancestor, err := taxonomy.GetCategory(ancestorID)
		if err != nil {
			return nil, err
		}
		result.Ancestors = append(result.Ancestors, queries.NewCategoryView(ancestor))
	}
	return result, nil
}

// HandleGetDescendants collects the whole subtree below one category
func (h *TreeQueryHandler) HandleGetDescendants(ctx context.Context, query queries.GetDescendantsQuery) (*queries.GetDescendantsResult, error) {
	id, err := valueobjects.NewCategoryIDFromString(query.CategoryID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid category ID")
	}

	taxonomy, err := loadTaxonomy(ctx, h.categoryRepo, h.cfg)
	if err != nil {
		return nil, err
	}
	descendantIDs, err := taxonomy.Descendants(id)
	if err != nil {
		return nil, err
	}

	result := &queries.GetDescendantsResult{
		CategoryID:  query.CategoryID,
		Count:       len(descendantIDs),
		Descendants: make([]queries.CategoryView, 0, len(descendantIDs)),
	}
	for _, descendantID := range descendantIDs {
		descendant, err := taxonomy.GetCategory(descendantID)
		if err != nil {
			return nil, err
		}
		result.Descendants = append(result.Descendants, queries.NewCategoryView(descendant))
	}
	return result, nil
}
