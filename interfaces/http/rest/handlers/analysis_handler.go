package handlers

import (
	"net/http"

	"catgraph/application/queries"
	querybus "catgraph/application/queries/bus"
	"catgraph/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisHandler serves the similarity-graph analytics endpoints. All of
// them are reads over one consistent snapshot; the heavy lifting and the
// caching live in the analysis service behind the query bus.
type AnalysisHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// GetStats handles GET /analysis/stats
func (h *AnalysisHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetStatsQuery{})
	if err != nil {
		h.logger.Error("Failed to compute graph stats", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetIslands handles GET /analysis/islands
func (h *AnalysisHandler) GetIslands(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetIslandsQuery{})
	if err != nil {
		h.logger.Error("Failed to compute islands", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetDiameter handles GET /analysis/diameter
func (h *AnalysisHandler) GetDiameter(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetDiameterQuery{})
	if err != nil {
		h.logger.Error("Failed to compute diameter", zap.Error(err))
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetShortestPath handles GET /analysis/shortest-path?from=<id>&to=<id>
func (h *AnalysisHandler) GetShortestPath(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Both from and to are required")
		return
	}
	for _, id := range []string{from, to} {
		if _, err := uuid.Parse(id); err != nil {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid category ID format")
			return
		}
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetShortestPathQuery{From: from, To: to})
	if err != nil {
		h.logger.Error("Failed to compute shortest path",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		respondFailure(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetReport handles GET /analysis/report. The report is rendered for humans,
// so plain text is the default; format=json wraps it in the envelope with
// its snapshot version.
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetReportQuery{})
	if err != nil {
		h.logger.Error("Failed to render analysis report", zap.Error(err))
		respondFailure(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		common.RespondJSON(w, http.StatusOK, result)
		return
	}

	report, ok := result.(*queries.GetReportResult)
	if !ok {
		h.logger.Error("Unexpected report result type")
		common.RespondError(w, http.StatusInternalServerError, common.StandardErrorCodes.InternalError, "An unexpected error occurred")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Snapshot-Version", report.SnapshotVersion)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(report.Report)); err != nil {
		h.logger.Error("Failed to write report", zap.Error(err))
	}
}
