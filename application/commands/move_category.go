package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// treeMutationLockResource serializes moves and deletes. Each mutation
// validates against its own taxonomy snapshot; two snapshots taken before
// either commit can each pass validation yet combine into a parent cycle.
const treeMutationLockResource = "category-tree"

// MoveCategoryCommand re-parents a category. A nil ParentID detaches it and
// makes it a root.
type MoveCategoryCommand struct {
	CategoryID string  `json:"category_id" validate:"required,uuid"`
	ParentID   *string `json:"parent_id" validate:"omitempty,uuid"`
}

// Validate validates the command
func (cmd MoveCategoryCommand) Validate() error {
	if cmd.CategoryID == "" {
		return errors.New("category ID is required")
	}
	if cmd.ParentID != nil && *cmd.ParentID == cmd.CategoryID {
		return errors.New("category cannot be its own parent")
	}
	return nil
}

// MoveCategoryHandler handles category moves
type MoveCategoryHandler struct {
	categoryRepo ports.CategoryRepository
	eventBus     ports.EventBus
	locks        ports.LockManager
	cfg          *config.DomainConfig
	logger       *zap.Logger
}

// NewMoveCategoryHandler creates a new move category handler
func NewMoveCategoryHandler(
	categoryRepo ports.CategoryRepository,
	eventBus ports.EventBus,
	locks ports.LockManager,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *MoveCategoryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MoveCategoryHandler{
		categoryRepo: categoryRepo,
		eventBus:     eventBus,
		locks:        locks,
		cfg:          cfg,
		logger:       logger,
	}
}

// Handle executes the move category command
func (h *MoveCategoryHandler) Handle(ctx context.Context, cmd MoveCategoryCommand) (*entities.Category, error) {
	categoryID, err := valueobjects.NewCategoryIDFromString(cmd.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("invalid category ID: %w", err)
	}

	var newParent valueobjects.CategoryID
	if cmd.ParentID != nil && *cmd.ParentID != "" {
		newParent, err = valueobjects.NewCategoryIDFromString(*cmd.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent ID: %w", err)
		}
	}

	lock, err := h.locks.TryAcquireLock(ctx, treeMutationLockResource, uuid.NewString(), 30*time.Second, 5*time.Second)
	if err != nil {
		return nil, pkgerrors.ErrLockNotAcquired.WithCause(err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			h.logger.Warn("Failed to release tree mutation lock", zap.Error(err))
		}
	}()

	taxonomy, err := loadTaxonomy(ctx, h.categoryRepo, h.cfg)
	if err != nil {
		return nil, err
	}

	// MoveCategory rejects self, descendants and unknown parents before the
	// entity is touched.
	if err := taxonomy.MoveCategory(categoryID, newParent); err != nil {
		return nil, err
	}

	category, err := taxonomy.GetCategory(categoryID)
	if err != nil {
		return nil, err
	}

	// Moving to the current parent is a no-op and must not consume a version.
	if len(category.GetUncommittedEvents()) == 0 {
		return category, nil
	}

	if err := h.categoryRepo.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}

	for _, event := range category.GetUncommittedEvents() {
		if err := h.eventBus.Publish(ctx, event); err != nil {
			h.logger.Warn("Failed to publish move event", zap.Error(err))
		}
	}
	category.MarkEventsAsCommitted()

	h.logger.Info("Category moved",
		zap.String("categoryID", cmd.CategoryID),
		zap.Bool("nowRoot", category.IsRoot()),
	)

	return category, nil
}
