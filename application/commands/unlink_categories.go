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

// UnlinkCategoriesCommand removes a similarity edge. The pair is order-free.
type UnlinkCategoriesCommand struct {
	CategoryA string `json:"category_a" validate:"required,uuid"`
	CategoryB string `json:"category_b" validate:"required,uuid"`
}

// Validate validates the command
func (cmd UnlinkCategoriesCommand) Validate() error {
	if cmd.CategoryA == "" || cmd.CategoryB == "" {
		return errors.New("both category IDs are required")
	}
	if cmd.CategoryA == cmd.CategoryB {
		return errors.New("self-pairs are never stored")
	}
	return nil
}

// UnlinkCategoriesHandler handles similarity removal
type UnlinkCategoriesHandler struct {
	similarityRepo ports.SimilarityRepository
	eventBus       ports.EventBus
	logger         *zap.Logger
}

// NewUnlinkCategoriesHandler creates a new unlink handler
func NewUnlinkCategoriesHandler(
	similarityRepo ports.SimilarityRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *UnlinkCategoriesHandler {
	return &UnlinkCategoriesHandler{
		similarityRepo: similarityRepo,
		eventBus:       eventBus,
		logger:         logger,
	}
}

// Handle executes the unlink command
func (h *UnlinkCategoriesHandler) Handle(ctx context.Context, cmd UnlinkCategoriesCommand) error {
	idA, err := valueobjects.NewCategoryIDFromString(cmd.CategoryA)
	if err != nil {
		return fmt.Errorf("invalid category ID %q: %w", cmd.CategoryA, err)
	}
	idB, err := valueobjects.NewCategoryIDFromString(cmd.CategoryB)
	if err != nil {
		return fmt.Errorf("invalid category ID %q: %w", cmd.CategoryB, err)
	}

	edge, err := valueobjects.NewSimilarityEdge(idA, idB)
	if err != nil {
		return err
	}

	exists, err := h.similarityRepo.Exists(ctx, edge)
	if err != nil {
		return fmt.Errorf("failed to check edge: %w", err)
	}
	if !exists {
		return pkgerrors.ErrSimilarityNotFound.
			WithDetail("category_a", edge.First().String()).
			WithDetail("category_b", edge.Second().String())
	}

	if err := h.similarityRepo.Delete(ctx, edge); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	event := events.NewCategoriesUnlinked(edge, time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish unlink event", zap.Error(err))
	}

	h.logger.Info("Categories unlinked",
		zap.String("first", edge.First().String()),
		zap.String("second", edge.Second().String()),
	)

	return nil
}
