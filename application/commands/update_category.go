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

// UpdateCategoryCommand represents the command to update a category's label
// or image. Nil pointers leave the corresponding field untouched.
type UpdateCategoryCommand struct {
	CategoryID  string  `json:"category_id" validate:"required,uuid"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Validate validates the command
func (cmd UpdateCategoryCommand) Validate() error {
	if cmd.CategoryID == "" {
		return errors.New("category ID is required")
	}
	if cmd.Name == nil && cmd.Description == nil && cmd.ImageURL == nil {
		return errors.New("nothing to update")
	}
	if cmd.Name != nil {
		if *cmd.Name == "" {
			return errors.New("name cannot be empty")
		}
		if utf8.RuneCountInString(*cmd.Name) > MaxCategoryNameLength {
			return errors.New("name exceeds maximum length")
		}
	}
	if cmd.Description != nil && utf8.RuneCountInString(*cmd.Description) > MaxCategoryDescriptionLength {
		return errors.New("description exceeds maximum length")
	}
	return nil
}

// UpdateCategoryHandler handles category label updates
type UpdateCategoryHandler struct {
	categoryRepo ports.CategoryRepository
	eventBus     ports.EventBus
	cfg          *config.DomainConfig
	validator    *validators.CategoryValidator
	logger       *zap.Logger
}

// NewUpdateCategoryHandler creates a new update category handler
func NewUpdateCategoryHandler(
	categoryRepo ports.CategoryRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *UpdateCategoryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &UpdateCategoryHandler{
		categoryRepo: categoryRepo,
		eventBus:     eventBus,
		cfg:          cfg,
		validator:    validators.NewCategoryValidator(),
		logger:       logger,
	}
}

// Handle executes the update category command
func (h *UpdateCategoryHandler) Handle(ctx context.Context, cmd UpdateCategoryCommand) (*entities.Category, error) {
	categoryID, err := valueobjects.NewCategoryIDFromString(cmd.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("invalid category ID: %w", err)
	}

	category, err := h.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	version := category.Version()

	if cmd.Name != nil || cmd.Description != nil {
		current := category.Label()
		name := current.Name()
		description := current.Description()

		if cmd.Name != nil {
			name = *cmd.Name
		}
		if cmd.Description != nil {
			description = *cmd.Description
		}

		label, err := valueobjects.NewCategoryLabelWithConfig(name, description, h.cfg)
		if err != nil {
			return nil, err
		}
		if err := category.Relabel(label); err != nil {
			return nil, err
		}
	}

	if cmd.ImageURL != nil {
		if *cmd.ImageURL != "" {
			if err := h.validator.ValidateImageURL(*cmd.ImageURL); err != nil {
				return nil, err
			}
		}
		category.SetImage(*cmd.ImageURL)
	}

	// An update that changed no field must not consume a version.
	if category.Version() == version {
		return category, nil
	}

	if err := h.categoryRepo.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}

	for _, event := range category.GetUncommittedEvents() {
		if err := h.eventBus.Publish(ctx, event); err != nil {
			h.logger.Warn("Failed to publish event", zap.Error(err))
		}
	}
	category.MarkEventsAsCommitted()

	h.logger.Info("Category updated",
		zap.String("categoryID", cmd.CategoryID),
		zap.String("name", category.Name()),
	)

	return category, nil
}
