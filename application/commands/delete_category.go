package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catgraph/application/ports"
	"catgraph/application/sagas"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeleteCategoryCommand removes a category. Its children are re-parented to
// the deleted node's parent and every similarity edge touching it is removed.
type DeleteCategoryCommand struct {
	CategoryID string `json:"category_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd DeleteCategoryCommand) Validate() error {
	if cmd.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}

// DeleteCategoryResult reports the removal outcome
type DeleteCategoryResult struct {
	CategoryID      string   `json:"category_id"`
	AdoptedChildren []string `json:"adopted_children"`
	RemovedEdges    int      `json:"removed_edges"`
}

// DeleteCategoryHandler handles category deletion
type DeleteCategoryHandler struct {
	removal  *sagas.CategoryRemovalSaga
	eventBus ports.EventBus
	locks    ports.LockManager
	logger   *zap.Logger
}

// NewDeleteCategoryHandler creates a new delete category handler
func NewDeleteCategoryHandler(
	removal *sagas.CategoryRemovalSaga,
	eventBus ports.EventBus,
	locks ports.LockManager,
	logger *zap.Logger,
) *DeleteCategoryHandler {
	return &DeleteCategoryHandler{
		removal:  removal,
		eventBus: eventBus,
		locks:    locks,
		logger:   logger,
	}
}

// Handle executes the delete category command
func (h *DeleteCategoryHandler) Handle(ctx context.Context, cmd DeleteCategoryCommand) (*DeleteCategoryResult, error) {
	categoryID, err := valueobjects.NewCategoryIDFromString(cmd.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("invalid category ID: %w", err)
	}

	// Removal re-parents children against a taxonomy snapshot; the tree
	// lock keeps a concurrent move from attaching new children to the
	// category between that snapshot and the delete.
	lock, err := h.locks.TryAcquireLock(ctx, treeMutationLockResource, uuid.NewString(), 30*time.Second, 5*time.Second)
	if err != nil {
		return nil, pkgerrors.ErrLockNotAcquired.WithCause(err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			h.logger.Warn("Failed to release tree mutation lock", zap.Error(err))
		}
	}()

	result, err := h.removal.Run(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if err := h.eventBus.PublishBatch(ctx, result.Events); err != nil {
		h.logger.Warn("Failed to publish deletion events", zap.Error(err))
	}

	h.logger.Info("Category deleted",
		zap.String("categoryID", cmd.CategoryID),
		zap.String("name", result.Category.Name()),
		zap.Int("adoptedChildren", len(result.AdoptedChildren)),
		zap.Int("removedEdges", result.RemovedEdges),
	)

	adopted := make([]string, len(result.AdoptedChildren))
	for i, id := range result.AdoptedChildren {
		adopted[i] = id.String()
	}

	return &DeleteCategoryResult{
		CategoryID:      cmd.CategoryID,
		AdoptedChildren: adopted,
		RemovedEdges:    result.RemovedEdges,
	}, nil
}
