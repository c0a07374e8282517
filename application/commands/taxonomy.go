package commands

import (
	"context"
	"fmt"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/aggregates"
)

// loadTaxonomy assembles the hierarchy aggregate from the full category
// table. Structural validation (cycles, move targets, reparenting) needs the
// whole tree in memory; the catalog is small enough that this beats chasing
// parent pointers through the store one read at a time.
func loadTaxonomy(ctx context.Context, repo ports.CategoryRepository, cfg *config.DomainConfig) (*aggregates.Taxonomy, error) {
	categories, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	taxonomy, err := aggregates.BuildTaxonomy(categories, cfg)
	if err != nil {
		return nil, fmt.Errorf("stored hierarchy is inconsistent: %w", err)
	}

	return taxonomy, nil
}
