package commands

import (
	"context"
	"fmt"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"

	"go.uber.org/zap"
)

// PruneOrphanEdgesCommand removes similarity edges that reference categories
// which no longer exist. With DryRun set the orphans are only reported.
type PruneOrphanEdgesCommand struct {
	DryRun bool `json:"dry_run"`
}

// Validate validates the command
func (cmd PruneOrphanEdgesCommand) Validate() error {
	return nil
}

// OrphanEdge identifies one dangling similarity edge
type OrphanEdge struct {
	CategoryA string   `json:"category_a"`
	CategoryB string   `json:"category_b"`
	Missing   []string `json:"missing"`
}

// PruneOrphanEdgesResult reports what the prune found and removed
type PruneOrphanEdgesResult struct {
	Scanned int          `json:"scanned"`
	Orphans []OrphanEdge `json:"orphans"`
	Removed int          `json:"removed"`
	DryRun  bool         `json:"dry_run"`
}

// PruneOrphanEdgesHandler handles orphan edge pruning
type PruneOrphanEdgesHandler struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	eventBus       ports.EventBus
	logger         *zap.Logger
}

// NewPruneOrphanEdgesHandler creates a new prune handler
func NewPruneOrphanEdgesHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *PruneOrphanEdgesHandler {
	return &PruneOrphanEdgesHandler{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		eventBus:       eventBus,
		logger:         logger,
	}
}

// Handle executes the prune command
func (h *PruneOrphanEdgesHandler) Handle(ctx context.Context, cmd PruneOrphanEdgesCommand) (*PruneOrphanEdgesResult, error) {
	categories, err := h.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	known := make(map[valueobjects.CategoryID]struct{}, len(categories))
	for _, category := range categories {
		known[category.ID()] = struct{}{}
	}

	edges, err := h.similarityRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity edges: %w", err)
	}

	result := &PruneOrphanEdgesResult{
		Scanned: len(edges),
		Orphans: make([]OrphanEdge, 0),
		DryRun:  cmd.DryRun,
	}

	unlinked := make([]events.DomainEvent, 0)
	for _, edge := range edges {
		missing := make([]string, 0, 2)
		for _, id := range []valueobjects.CategoryID{edge.First(), edge.Second()} {
			if _, ok := known[id]; !ok {
				missing = append(missing, id.String())
			}
		}
		if len(missing) == 0 {
			continue
		}

		result.Orphans = append(result.Orphans, OrphanEdge{
			CategoryA: edge.First().String(),
			CategoryB: edge.Second().String(),
			Missing:   missing,
		})
		if cmd.DryRun {
			continue
		}

		if err := h.similarityRepo.Delete(ctx, edge); err != nil {
			return result, fmt.Errorf("failed to delete orphan edge %s: %w", edge.Key(), err)
		}
		result.Removed++
		unlinked = append(unlinked, events.NewCategoriesUnlinked(edge, time.Now()))
	}

	if len(unlinked) > 0 {
		if err := h.eventBus.PublishBatch(ctx, unlinked); err != nil {
			h.logger.Warn("Failed to publish unlink events", zap.Error(err))
		}
	}

	h.logger.Info("Orphan edge prune finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("orphans", len(result.Orphans)),
		zap.Int("removed", result.Removed),
		zap.Bool("dry_run", cmd.DryRun),
	)

	return result, nil
}
