package sagas

import (
	"context"
	"fmt"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/aggregates"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"

	"go.uber.org/zap"
)

// CategoryRemovalResult reports what a completed removal changed.
type CategoryRemovalResult struct {
	Category        *entities.Category
	AdoptedChildren []valueobjects.CategoryID
	RemovedEdges    int
	Events          []events.DomainEvent
}

// CategoryRemovalSaga deletes a category in three compensable steps: strip
// its similarity edges, re-parent its children to their grandparent, then
// remove the row itself. A failure at any step restores what the earlier
// steps changed, so a half-deleted category never survives an error.
type CategoryRemovalSaga struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	cfg            *config.DomainConfig
	logger         *zap.Logger
}

// NewCategoryRemovalSaga creates a new removal saga
func NewCategoryRemovalSaga(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CategoryRemovalSaga {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &CategoryRemovalSaga{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// removalState is threaded through the saga steps via closure capture.
type removalState struct {
	category       *entities.Category
	strippedEdges  []valueobjects.SimilarityEdge
	childSnapshots []*entities.Category
	adopted        []valueobjects.CategoryID
	events         []events.DomainEvent
}

// Run executes the removal.
func (s *CategoryRemovalSaga) Run(ctx context.Context, id valueobjects.CategoryID) (*CategoryRemovalResult, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	state := &removalState{category: category}

	saga := NewSagaBuilder("category-removal", s.logger).
		WithCompensableStep("strip-similarity-edges",
			func(ctx context.Context, _ interface{}) (interface{}, error) {
				return nil, s.stripEdges(ctx, id, state)
			},
			func(ctx context.Context, _ interface{}) error {
				return s.restoreEdges(ctx, state)
			},
		).
		WithCompensableStep("reparent-children",
			func(ctx context.Context, _ interface{}) (interface{}, error) {
				return nil, s.reparentChildren(ctx, id, state)
			},
			func(ctx context.Context, _ interface{}) error {
				return s.restoreChildren(ctx, state)
			},
		).
		WithCompensableStep("delete-category",
			func(ctx context.Context, _ interface{}) (interface{}, error) {
				return nil, s.categoryRepo.Delete(ctx, id)
			},
			func(ctx context.Context, _ interface{}) error {
				return s.categoryRepo.Save(ctx, state.category)
			},
		).
		Build()

	if _, err := saga.Execute(ctx, nil); err != nil {
		return nil, err
	}

	return &CategoryRemovalResult{
		Category:        state.category,
		AdoptedChildren: state.adopted,
		RemovedEdges:    len(state.strippedEdges),
		Events:          state.events,
	}, nil
}

func (s *CategoryRemovalSaga) stripEdges(ctx context.Context, id valueobjects.CategoryID, state *removalState) error {
	edges, err := s.similarityRepo.GetByCategoryID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load similarity edges: %w", err)
	}
	state.strippedEdges = edges

	if _, err := s.similarityRepo.DeleteByCategoryID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete similarity edges: %w", err)
	}
	return nil
}

func (s *CategoryRemovalSaga) restoreEdges(ctx context.Context, state *removalState) error {
	if len(state.strippedEdges) == 0 {
		return nil
	}
	return s.similarityRepo.BulkSave(ctx, state.strippedEdges)
}

func (s *CategoryRemovalSaga) reparentChildren(ctx context.Context, id valueobjects.CategoryID, state *removalState) error {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	taxonomy, err := aggregates.BuildTaxonomy(categories, s.cfg)
	if err != nil {
		return fmt.Errorf("stored hierarchy is inconsistent: %w", err)
	}

	// Snapshot the children before the aggregate mutates them so
	// compensation can put their parent pointers back.
	childIDs, err := taxonomy.Children(id)
	if err != nil {
		return err
	}
	state.childSnapshots = make([]*entities.Category, 0, len(childIDs))
	for _, childID := range childIDs {
		child, err := taxonomy.GetCategory(childID)
		if err != nil {
			return err
		}
		snapshot, err := entities.ReconstructCategory(
			child.ID(), child.Label(), id, child.ImageURL(),
			child.CreatedAt(), child.UpdatedAt(), child.Version(),
		)
		if err != nil {
			return err
		}
		state.childSnapshots = append(state.childSnapshots, snapshot)
	}

	adopted, err := taxonomy.RemoveCategory(id, len(state.strippedEdges))
	if err != nil {
		return err
	}
	state.adopted = adopted

	if len(adopted) > 0 {
		moved := make([]*entities.Category, 0, len(adopted))
		for _, childID := range adopted {
			child, err := taxonomy.GetCategory(childID)
			if err != nil {
				return err
			}
			moved = append(moved, child)
		}
		if err := s.categoryRepo.BulkSave(ctx, moved); err != nil {
			return fmt.Errorf("failed to save re-parented children: %w", err)
		}
	}

	state.events = taxonomy.GetUncommittedEvents()
	taxonomy.MarkEventsAsCommitted()
	return nil
}

func (s *CategoryRemovalSaga) restoreChildren(ctx context.Context, state *removalState) error {
	if len(state.childSnapshots) == 0 {
		return nil
	}
	return s.categoryRepo.BulkSave(ctx, state.childSnapshots)
}
