package handlers

import (
	"encoding/json"
	"net/http"

	"catgraph/application/commands"
	"catgraph/application/commands/bus"
	"catgraph/application/queries"
	querybus "catgraph/application/queries/bus"
	"catgraph/pkg/common"
	"catgraph/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimilarityHandler handles similarity-edge HTTP requests. The bulk import
// and prune operations call their handlers directly instead of going through
// the command bus: both produce per-item reports the response needs, and the
// bus only carries errors back.
type SimilarityHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	bulkLink   *commands.BulkLinkCategoriesHandler
	pruner     *commands.PruneOrphanEdgesHandler
	logger     *zap.Logger
}

// NewSimilarityHandler creates a new similarity handler
func NewSimilarityHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	bulkLink *commands.BulkLinkCategoriesHandler,
	pruner *commands.PruneOrphanEdgesHandler,
	logger *zap.Logger,
) *SimilarityHandler {
	return &SimilarityHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		bulkLink:   bulkLink,
		pruner:     pruner,
		logger:     logger,
	}
}

// LinkCategoriesRequest represents the request body for creating a
// similarity edge. The pair is order-free.
type LinkCategoriesRequest struct {
	CategoryA string `json:"category_a" validate:"required,uuid"`
	CategoryB string `json:"category_b" validate:"required,uuid"`
}

// BulkLinkRequest represents the request body for a bulk similarity import
type BulkLinkRequest struct {
	Pairs []commands.CategoryPair `json:"pairs" validate:"required,min=1,dive"`
}

// PruneRequest represents the request body for an orphan-edge prune. With
// dry_run set the orphans are reported but kept.
type PruneRequest struct {
	DryRun bool `json:"dry_run"`
}

// LinkCategories handles POST /similarities
func (h *SimilarityHandler) LinkCategories(w http.ResponseWriter, r *http.Request) {
	var req LinkCategoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.LinkCategoriesCommand{
		CategoryA: req.CategoryA,
		CategoryB: req.CategoryB,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to link categories",
			zap.String("categoryA", req.CategoryA),
			zap.String("categoryB", req.CategoryB),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{
		"category_a": req.CategoryA,
		"category_b": req.CategoryB,
		"message":    "Categories linked",
	})
}

// UnlinkCategories handles DELETE /similarities. The pair comes in as query
// parameters; a DELETE body does not survive every proxy.
func (h *SimilarityHandler) UnlinkCategories(w http.ResponseWriter, r *http.Request) {
	categoryA := r.URL.Query().Get("category_a")
	categoryB := r.URL.Query().Get("category_b")
	if categoryA == "" || categoryB == "" {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Both category_a and category_b are required")
		return
	}
	for _, id := range []string{categoryA, categoryB} {
		if _, err := uuid.Parse(id); err != nil {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid category ID format")
			return
		}
	}

	cmd := commands.UnlinkCategoriesCommand{
		CategoryA: categoryA,
		CategoryB: categoryB,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to unlink categories",
			zap.String("categoryA", categoryA),
			zap.String("categoryB", categoryB),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkLinkCategories handles POST /similarities/bulk
func (h *SimilarityHandler) BulkLinkCategories(w http.ResponseWriter, r *http.Request) {
	var req BulkLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	result, err := h.bulkLink.Handle(r.Context(), commands.BulkLinkCategoriesCommand{Pairs: req.Pairs})
	if err != nil {
		h.logger.Error("Bulk similarity import failed",
			zap.Int("pairs", len(req.Pairs)),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// PruneOrphanEdges handles POST /similarities/prune. An empty body means a
// real prune.
func (h *SimilarityHandler) PruneOrphanEdges(w http.ResponseWriter, r *http.Request) {
	var req PruneRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.pruner.Handle(r.Context(), commands.PruneOrphanEdgesCommand{DryRun: req.DryRun})
	if err != nil {
		h.logger.Error("Orphan edge prune failed", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetSimilar handles GET /categories/{categoryID}/similar
func (h *SimilarityHandler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSimilarQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("Failed to resolve similar categories",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ListSimilarities handles GET /similarities/by-category/{categoryID}
func (h *SimilarityHandler) ListSimilarities(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListSimilaritiesQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("Failed to list similarity edges",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

func (h *SimilarityHandler) categoryIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	categoryID := chi.URLParam(r, "categoryID")
	if categoryID == "" {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Category ID is required")
		return "", false
	}

	if _, err := uuid.Parse(categoryID); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid category ID format")
		return "", false
	}

	return categoryID, true
}
