package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"

	"go.uber.org/zap"
)

// LinkCategoriesCommand records that two categories are similar. The pair is
// order-free; it is canonicalized before storage.
type LinkCategoriesCommand struct {
	CategoryA string `json:"category_a" validate:"required,uuid"`
	CategoryB string `json:"category_b" validate:"required,uuid"`
}

// Validate validates the command
func (cmd LinkCategoriesCommand) Validate() error {
	if cmd.CategoryA == "" || cmd.CategoryB == "" {
		return errors.New("both category IDs are required")
	}
	if cmd.CategoryA == cmd.CategoryB {
		return errors.New("a category cannot be similar to itself")
	}
	return nil
}

// LinkCategoriesHandler handles similarity creation. The edge write and its
// outbox event commit in one unit of work, so a stored edge always has a
// linked event on its way out.
type LinkCategoriesHandler struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	uowFactory     ports.UnitOfWorkFactory
	eventBus       ports.EventBus
	logger         *zap.Logger
}

// NewLinkCategoriesHandler creates a new link handler
func NewLinkCategoriesHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	uowFactory ports.UnitOfWorkFactory,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *LinkCategoriesHandler {
	return &LinkCategoriesHandler{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		uowFactory:     uowFactory,
		eventBus:       eventBus,
		logger:         logger,
	}
}

// Handle executes the link command
func (h *LinkCategoriesHandler) Handle(ctx context.Context, cmd LinkCategoriesCommand) (valueobjects.SimilarityEdge, error) {
	edge, err := h.buildEdge(ctx, cmd.CategoryA, cmd.CategoryB)
	if err != nil {
		return valueobjects.SimilarityEdge{}, err
	}

	exists, err := h.similarityRepo.Exists(ctx, edge)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to check edge: %w", err)
	}
	if exists {
		return valueobjects.SimilarityEdge{}, pkgerrors.ErrDuplicateSimilarity.
			WithDetail("category_a", edge.First().String()).
			WithDetail("category_b", edge.Second().String())
	}

	event := events.NewCategoriesLinked(edge, time.Now())

	uow, err := h.uowFactory.Create(ctx)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to create unit of work: %w", err)
	}
	if err := uow.Begin(ctx); err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op once Commit succeeds.

	if err := uow.SimilarityRepository().Save(ctx, edge); err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to save edge: %w", err)
	}
	if err := uow.RegisterEvents(event); err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to register link event: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		// A concurrent writer beat this request to the same pair.
		if errors.Is(err, pkgerrors.ErrDuplicateSimilarity) {
			return valueobjects.SimilarityEdge{}, pkgerrors.ErrDuplicateSimilarity.
				WithDetail("category_a", edge.First().String()).
				WithDetail("category_b", edge.Second().String())
		}
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to commit link: %w", err)
	}

	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish link event", zap.Error(err))
	}

	h.logger.Info("Categories linked",
		zap.String("first", edge.First().String()),
		zap.String("second", edge.Second().String()),
	)

	return edge, nil
}

// buildEdge parses, canonicalizes and reference-checks a pair. Both
// endpoints must exist before the edge is accepted.
func (h *LinkCategoriesHandler) buildEdge(ctx context.Context, rawA, rawB string) (valueobjects.SimilarityEdge, error) {
	idA, err := valueobjects.NewCategoryIDFromString(rawA)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("invalid category ID %q: %w", rawA, err)
	}
	idB, err := valueobjects.NewCategoryIDFromString(rawB)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("invalid category ID %q: %w", rawB, err)
	}

	edge, err := valueobjects.NewSimilarityEdge(idA, idB)
	if err != nil {
		return valueobjects.SimilarityEdge{}, err
	}

	for _, id := range []valueobjects.CategoryID{edge.First(), edge.Second()} {
		if _, err := h.categoryRepo.GetByID(ctx, id); err != nil {
			return valueobjects.SimilarityEdge{}, pkgerrors.ErrUnknownCategory.
				WithDetail("category_id", id.String()).
				WithCause(err)
		}
	}

	return edge, nil
}
