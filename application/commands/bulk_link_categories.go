package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bulkImportLockResource serializes concurrent bulk imports so duplicate
// checks inside one batch cannot race another batch.
const bulkImportLockResource = "similarity-bulk-import"

// CategoryPair is one similarity candidate in a bulk import
type CategoryPair struct {
	CategoryA string `json:"category_a" validate:"required,uuid"`
	CategoryB string `json:"category_b" validate:"required,uuid"`
}

// BulkLinkCategoriesCommand imports many similarity pairs. Each pair is
// atomic on its own: valid pairs land even when others in the batch fail.
type BulkLinkCategoriesCommand struct {
	Pairs []CategoryPair `json:"pairs" validate:"required,min=1,dive"`
}

// Validate validates the command
func (cmd BulkLinkCategoriesCommand) Validate() error {
	if len(cmd.Pairs) == 0 {
		return errors.New("at least one pair is required")
	}
	return nil
}

// BulkLinkFailure describes one rejected pair
type BulkLinkFailure struct {
	CategoryA string `json:"category_a"`
	CategoryB string `json:"category_b"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// BulkLinkCategoriesResult collects per-item outcomes
type BulkLinkCategoriesResult struct {
	Requested int               `json:"requested"`
	Created   int               `json:"created"`
	Failures  []BulkLinkFailure `json:"failures"`
}

// BulkLinkCategoriesHandler handles bulk similarity imports
type BulkLinkCategoriesHandler struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	eventBus       ports.EventBus
	locks          ports.LockManager
	cfg            *config.DomainConfig
	logger         *zap.Logger
}

// NewBulkLinkCategoriesHandler creates a new bulk link handler
func NewBulkLinkCategoriesHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	eventBus ports.EventBus,
	locks ports.LockManager,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *BulkLinkCategoriesHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &BulkLinkCategoriesHandler{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		eventBus:       eventBus,
		locks:          locks,
		cfg:            cfg,
		logger:         logger,
	}
}

// Handle executes the bulk link command
func (h *BulkLinkCategoriesHandler) Handle(ctx context.Context, cmd BulkLinkCategoriesCommand) (*BulkLinkCategoriesResult, error) {
	if len(cmd.Pairs) > h.cfg.MaxBulkSimilarities {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("batch exceeds the %d pair limit", h.cfg.MaxBulkSimilarities))
	}

	lock, err := h.locks.TryAcquireLock(ctx, bulkImportLockResource, uuid.NewString(), 30*time.Second, 5*time.Second)
	if err != nil {
		return nil, pkgerrors.ErrLockNotAcquired.WithCause(err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			h.logger.Warn("Failed to release bulk import lock", zap.Error(err))
		}
	}()

	// One snapshot of known ids serves the whole batch.
	categories, err := h.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	known := make(map[valueobjects.CategoryID]struct{}, len(categories))
	for _, category := range categories {
		known[category.ID()] = struct{}{}
	}

	result := &BulkLinkCategoriesResult{
		Requested: len(cmd.Pairs),
		Failures:  make([]BulkLinkFailure, 0),
	}
	seen := make(map[string]struct{}, len(cmd.Pairs))
	linked := make([]events.DomainEvent, 0, len(cmd.Pairs))

	for _, pair := range cmd.Pairs {
		edge, err := h.importPair(ctx, pair, known, seen)
		if err != nil {
			result.Failures = append(result.Failures, newBulkLinkFailure(pair, err))
			continue
		}
		seen[edge.Key()] = struct{}{}
		result.Created++
		linked = append(linked, events.NewCategoriesLinked(edge, time.Now()))
	}

	if len(linked) > 0 {
		if err := h.eventBus.PublishBatch(ctx, linked); err != nil {
			h.logger.Warn("Failed to publish bulk link events", zap.Error(err))
		}
	}

	h.logger.Info("Bulk similarity import finished",
		zap.Int("requested", result.Requested),
		zap.Int("created", result.Created),
		zap.Int("failed", len(result.Failures)),
	)

	return result, nil
}

// importPair validates and stores one pair. Every check an interactive link
// would run applies here too; only this pair fails when one does.
func (h *BulkLinkCategoriesHandler) importPair(
	ctx context.Context,
	pair CategoryPair,
	known map[valueobjects.CategoryID]struct{},
	seen map[string]struct{},
) (valueobjects.SimilarityEdge, error) {
	idA, err := valueobjects.NewCategoryIDFromString(pair.CategoryA)
	if err != nil {
		return valueobjects.SimilarityEdge{}, pkgerrors.NewValidationError(
			fmt.Sprintf("invalid category ID %q", pair.CategoryA))
	}
	idB, err := valueobjects.NewCategoryIDFromString(pair.CategoryB)
	if err != nil {
		return valueobjects.SimilarityEdge{}, pkgerrors.NewValidationError(
			fmt.Sprintf("invalid category ID %q", pair.CategoryB))
	}

	edge, err := valueobjects.NewSimilarityEdge(idA, idB)
	if err != nil {
		return valueobjects.SimilarityEdge{}, err
	}

	for _, id := range []valueobjects.CategoryID{edge.First(), edge.Second()} {
		if _, ok := known[id]; !ok {
			return valueobjects.SimilarityEdge{}, pkgerrors.ErrUnknownCategory.
				WithDetail("category_id", id.String())
		}
	}

	if _, dup := seen[edge.Key()]; dup {
		return valueobjects.SimilarityEdge{}, pkgerrors.ErrDuplicateSimilarity.
			WithDetail("pair", edge.Key())
	}
	exists, err := h.similarityRepo.Exists(ctx, edge)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to check edge: %w", err)
	}
	if exists {
		return valueobjects.SimilarityEdge{}, pkgerrors.ErrDuplicateSimilarity.
			WithDetail("pair", edge.Key())
	}

	if err := h.similarityRepo.Save(ctx, edge); err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("failed to save edge: %w", err)
	}

	return edge, nil
}

func newBulkLinkFailure(pair CategoryPair, err error) BulkLinkFailure {
	failure := BulkLinkFailure{
		CategoryA: pair.CategoryA,
		CategoryB: pair.CategoryB,
		Reason:    err.Error(),
	}

	var domainErr *pkgerrors.DomainError
	var appErr *pkgerrors.AppError
	switch {
	case errors.As(err, &domainErr):
		failure.Code = domainErr.Code
		failure.Reason = domainErr.Message
	case errors.As(err, &appErr):
		failure.Code = string(appErr.Type)
		failure.Reason = appErr.Message
	default:
		failure.Code = "INTERNAL_ERROR"
	}

	return failure
}
