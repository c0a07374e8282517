package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

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

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *CategoryHandler {
	return &CategoryHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ParentID    string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateCategoryRequest represents the request body for updating a category.
// Absent fields stay untouched.
type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// MoveCategoryRequest represents the request body for reparenting a
// category. A null parent makes it a root.
type MoveCategoryRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

// CreateCategoryResponse represents the response for creating a category
type CreateCategoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// CreateCategory handles POST /categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	// The ID is assigned here so the response can carry it without a
	// read back through the query side.
	categoryID := uuid.New().String()

	cmd := commands.CreateCategoryCommand{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		ImageURL:    req.ImageURL,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to create category",
			zap.String("categoryID", categoryID),
			zap.String("name", req.Name),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateCategoryResponse{
		ID:        categoryID,
		Name:      req.Name,
		ParentID:  req.ParentID,
		CreatedAt: utils.NowRFC3339(),
	})
}

// GetCategory handles GET /categories/{categoryID}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetCategoryQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("Failed to get category",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// UpdateCategory handles PUT /categories/{categoryID}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.UpdateCategoryCommand{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to update category",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"id":      categoryID,
		"message": "Category updated",
	})
}

// MoveCategory handles PUT /categories/{categoryID}/parent
func (h *CategoryHandler) MoveCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	var req MoveCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.MoveCategoryCommand{
		CategoryID: categoryID,
		ParentID:   req.ParentID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to move category",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	parent := ""
	if req.ParentID != nil {
		parent = *req.ParentID
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"id":        categoryID,
		"parent_id": parent,
		"message":   "Category moved",
	})
}

// DeleteCategory handles DELETE /categories/{categoryID}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	cmd := commands.DeleteCategoryCommand{CategoryID: categoryID}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete category",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	page, _ := strconv.Atoi(params.Get("page"))
	pageSize, _ := strconv.Atoi(params.Get("page_size"))
	rootsOnly, _ := strconv.ParseBool(params.Get("roots_only"))

	parentID := params.Get("parent_id")
	if parentID != "" {
		if _, err := uuid.Parse(parentID); err != nil {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid parent ID format")
			return
		}
	}

	query := queries.ListCategoriesQuery{
		Search:    params.Get("search"),
		ParentID:  parentID,
		RootsOnly: rootsOnly,
		Page:      page,
		PageSize:  pageSize,
		SortBy:    params.Get("sort_by"),
		SortDesc:  params.Get("order") == "desc",
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetTree handles GET /categories/tree
func (h *CategoryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetTreeQuery{})
	if err != nil {
		h.logger.Error("Failed to build category tree", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetRoots handles GET /categories/roots
func (h *CategoryHandler) GetRoots(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetRootsQuery{})
	if err != nil {
		h.logger.Error("Failed to list root categories", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetChildren handles GET /categories/{categoryID}/children
func (h *CategoryHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetChildrenQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("Failed to list children",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetAncestors handles GET /categories/{categoryID}/ancestors
func (h *CategoryHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetAncestorsQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("Failed to list ancestors",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetDescendants handles GET /categories/{categoryID}/descendants
func (h *CategoryHandler) GetDescendants(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.categoryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetDescendantsQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("Failed to list descendants",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// categoryIDParam extracts and validates the categoryID route parameter.
// It writes the error response itself so callers can just return.
func (h *CategoryHandler) categoryIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
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
