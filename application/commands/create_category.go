package commands

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/validators"
	"catgraph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// CreateCategoryCommand represents the command to create a new category.
// CategoryID is optional; callers that need the ID before the write lands,
// like the REST layer, pass one in.
type CreateCategoryCommand struct {
	CategoryID  string `json:"category_id" validate:"omitempty,uuid"`
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=2000"`
	ParentID    string `json:"parent_id" validate:"omitempty,uuid"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// Validate validates the command
func (cmd CreateCategoryCommand) Validate() error {
	if cmd.Name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(cmd.Name) > MaxCategoryNameLength {
		return errors.New("name exceeds maximum length")
	}
	if utf8.RuneCountInString(cmd.Description) > MaxCategoryDescriptionLength {
		return errors.New("description exceeds maximum length")
	}
	return nil
}

const (
	MaxCategoryNameLength        = 120
	MaxCategoryDescriptionLength = 2000
)

// CreateCategoryHandler handles the CreateCategoryCommand
type CreateCategoryHandler struct {
	categoryRepo ports.CategoryRepository
	eventBus     ports.EventBus
	cfg          *config.DomainConfig
	validator    *validators.CategoryValidator
	logger       *zap.Logger
}

// NewCreateCategoryHandler creates a new handler instance
func NewCreateCategoryHandler(
	categoryRepo ports.CategoryRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CreateCategoryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &CreateCategoryHandler{
		categoryRepo: categoryRepo,
		eventBus:     eventBus,
		cfg:          cfg,
		validator:    validators.NewCategoryValidator(),
		logger:       logger,
	}
}

// Handle executes the create category command
func (h *CreateCategoryHandler) Handle(ctx context.Context, cmd CreateCategoryCommand) (*entities.Category, error) {
	label, err := valueobjects.NewCategoryLabelWithConfig(cmd.Name, cmd.Description, h.cfg)
	if err != nil {
		return nil, err
	}

	var parentID valueobjects.CategoryID
	if cmd.ParentID != "" {
		parentID, err = valueobjects.NewCategoryIDFromString(cmd.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id: %w", err)
		}
	}

	if cmd.ImageURL != "" {
		if err := h.validator.ValidateImageURL(cmd.ImageURL); err != nil {
			return nil, err
		}
	}

	categoryID := valueobjects.NewCategoryID()
	if cmd.CategoryID != "" {
		categoryID, err = valueobjects.NewCategoryIDFromString(cmd.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("invalid category id: %w", err)
		}
	}

	category, err := entities.NewCategoryWithID(categoryID, label, parentID)
	if err != nil {
		return nil, err
	}
	if cmd.ImageURL != "" {
		category.SetImage(cmd.ImageURL)
	}

	// The aggregate checks the parent exists and the new node cannot close
	// a cycle before anything is written.
	taxonomy, err := loadTaxonomy(ctx, h.categoryRepo, h.cfg)
	if err != nil {
		return nil, err
	}
	if err := taxonomy.AddCategory(category); err != nil {
		return nil, err
	}

	if err := h.categoryRepo.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}

	if err := h.eventBus.PublishBatch(ctx, category.GetUncommittedEvents()); err != nil {
		h.logger.Warn("Failed to publish category events", zap.Error(err))
	}
	category.MarkEventsAsCommitted()

	h.logger.Info("Category created",
		zap.String("categoryID", category.ID().String()),
		zap.String("name", category.Name()),
		zap.Bool("root", category.IsRoot()),
	)

	return category, nil
}
