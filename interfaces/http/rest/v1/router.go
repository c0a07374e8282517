// Package v1 serves the previous generation of the category API for
// clients still pinned to the flat paths. It keeps the old raw response
// shapes; the envelope and the tree endpoints are v2-only. New surface
// lands in v2, never here.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"catgraph/application/commands"
	"catgraph/application/commands/bus"
	"catgraph/application/queries"
	querybus "catgraph/application/queries/bus"
	pkgerrors "catgraph/pkg/errors"
	"catgraph/pkg/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates the v1 API router. It is mounted under /api/v1 by the
// main router, which already applies logging, request IDs and the
// deprecation headers.
func NewRouter(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *mux.Router {
	h := &legacyHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}

	router := mux.NewRouter()
	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Category endpoints
	v1.HandleFunc("/categories", h.createCategory).Methods("POST")
	v1.HandleFunc("/categories", h.listCategories).Methods("GET")
	v1.HandleFunc("/categories/{id}", h.getCategory).Methods("GET")
	v1.HandleFunc("/categories/{id}", h.deleteCategory).Methods("DELETE")
	v1.HandleFunc("/categories/{id}/similar", h.getSimilar).Methods("GET")

	// Similarity endpoints
	v1.HandleFunc("/similar", h.linkCategories).Methods("POST")

	// The classic text report
	v1.HandleFunc("/report", h.getReport).Methods("GET")

	// Health check
	v1.HandleFunc("/health", healthCheck).Methods("GET")

	return router
}

type legacyHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

type linkRequest struct {
	CategoryA string `json:"category_a"`
	CategoryB string `json:"category_b"`
}

func (h *legacyHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	categoryID := uuid.New().String()
	cmd := commands.CreateCategoryCommand{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("v1 create category failed", zap.Error(err))
		h.respondError(w, errorStatus(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{
		"id":         categoryID,
		"name":       req.Name,
		"created_at": utils.NowRFC3339(),
	})
}

func (h *legacyHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListCategoriesQuery{})
	if err != nil {
		h.logger.Error("v1 list categories failed", zap.Error(err))
		h.respondError(w, errorStatus(err), "Failed to list categories")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.idParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetCategoryQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("v1 get category failed",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		h.respondError(w, errorStatus(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.idParam(w, r)
	if !ok {
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.DeleteCategoryCommand{CategoryID: categoryID}); err != nil {
		h.logger.Error("v1 delete category failed",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		h.respondError(w, errorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *legacyHandler) getSimilar(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.idParam(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSimilarQuery{CategoryID: categoryID})
	if err != nil {
		h.logger.Error("v1 get similar failed",
			zap.String("categoryID", categoryID),
			zap.Error(err),
		)
		h.respondError(w, errorStatus(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) linkCategories(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := commands.LinkCategoriesCommand{
		CategoryA: req.CategoryA,
		CategoryB: req.CategoryB,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("v1 link categories failed", zap.Error(err))
		h.respondError(w, errorStatus(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{
		"category_a": req.CategoryA,
		"category_b": req.CategoryB,
	})
}

func (h *legacyHandler) getReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetReportQuery{})
	if err != nil {
		h.logger.Error("v1 report failed", zap.Error(err))
		h.respondError(w, errorStatus(err), "Failed to render report")
		return
	}

	report, ok := result.(*queries.GetReportResult)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.Report))
}

func (h *legacyHandler) idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	categoryID := mux.Vars(r)["id"]
	if _, err := uuid.Parse(categoryID); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid category ID format")
		return "", false
	}
	return categoryID, true
}

func (h *legacyHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode v1 response", zap.Error(err))
	}
}

func (h *legacyHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// errorStatus maps application errors onto the legacy status codes
func errorStatus(err error) int {
	if errors.Is(err, bus.ErrValidationFailed) {
		return http.StatusBadRequest
	}
	var domainErr *pkgerrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.StatusCode
	}
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// healthCheck provides the legacy health endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}
