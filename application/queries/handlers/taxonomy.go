package handlers

import (
	"context"
	"fmt"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/aggregates"
)

// loadTaxonomy builds the hierarchy aggregate from the full catalog.
// Ancestor and descendant walks need the whole tree in memory, and the
// catalog is small enough that one load beats chasing parent pointers
// through the store one read at a time.
func loadTaxonomy(ctx context.Context, repo ports.CategoryRepository, cfg *config.DomainConfig) (*aggregates.Taxonomy, error) {
	categories, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	taxonomy, err := aggregates.BuildTaxonomy(categories, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy: %w", err)
	}
	return taxonomy, nil
}
