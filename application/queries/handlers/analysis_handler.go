package handlers

import (
	"context"
	"time"

	"catgraph/application/queries"
	appservices "catgraph/application/services"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/services"
	pkgerrors "catgraph/pkg/errors"

	"go.uber.org/zap"
)

// AnalysisQueryHandler maps the analytics engine's output onto the
// query read models. All heavy lifting (snapshot load, caching, the
// engine run itself) lives in the analysis service; this handler only
// resolves names and shapes the response.
type AnalysisQueryHandler struct {
	analysis *appservices.AnalysisService
	logger   *zap.Logger
}

// NewAnalysisQueryHandler creates a new analysis query handler
func NewAnalysisQueryHandler(analysis *appservices.AnalysisService, logger *zap.Logger) *AnalysisQueryHandler {
	return &AnalysisQueryHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// HandleGetIslands returns the connected components of the similarity
// graph, largest first
func (h *AnalysisQueryHandler) HandleGetIslands(ctx context.Context, query queries.GetIslandsQuery) (*queries.GetIslandsResult, error) {
	report, err := h.analysis.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	result := &queries.GetIslandsResult{
		SnapshotVersion: report.Version,
		Count:           len(report.Result.Islands),
		Islands:         make([]queries.IslandView, 0, len(report.Result.Islands)),
	}
	for _, island := range report.Result.Islands {
		view := queries.IslandView{
			Size:    island.Size(),
			Members: namedCategories(island.Members, report.Names),
		}
		result.Islands = append(result.Islands, view)
	}
	return result, nil
}

// HandleGetDiameter returns the longest shortest path in the graph
func (h *AnalysisQueryHandler) HandleGetDiameter(ctx context.Context, query queries.GetDiameterQuery) (*queries.GetDiameterResult, error) {
	report, err := h.analysis.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	diameter := report.Result.Diameter
	return &queries.GetDiameterResult{
		SnapshotVersion: report.Version,
		Length:          diameter.Length,
		Path:            namedCategories(diameter.Path, report.Names),
		PathDisplay:     services.FormatPath(diameter.Path, report.Names),
	}, nil
}

// HandleGetShortestPath answers a point-to-point path query. A missing
// path between two known categories is found=false, not an error.
func (h *AnalysisQueryHandler) HandleGetShortestPath(ctx context.Context, query queries.GetShortestPathQuery) (*queries.GetShortestPathResult, error) {
	from, err := valueobjects.NewCategoryIDFromString(query.From)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid from category ID")
	}
	to, err := valueobjects.NewCategoryIDFromString(query.To)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid to category ID")
	}

	snapshot, path, found, err := h.analysis.ShortestPath(ctx, from, to)
	if err != nil {
		return nil, err
	}

	result := &queries.GetShortestPathResult{
		SnapshotVersion: snapshot.Version,
		From:            query.From,
		To:              query.To,
		Found:           found,
	}
	if found {
		result.Length = len(path) - 1
		result.Path = namedCategories(path, snapshot.Names)
		result.PathDisplay = services.FormatPath(path, snapshot.Names)
	}
	return result, nil
}

// HandleGetStats returns the aggregate graph statistics
func (h *AnalysisQueryHandler) HandleGetStats(ctx context.Context, query queries.GetStatsQuery) (*queries.GetStatsResult, error) {
	report, err := h.analysis.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	stats := report.Result.Stats
	result := &queries.GetStatsResult{
		SnapshotVersion: report.Version,
		TotalCategories: stats.TotalCategories,
		TotalEdges:      stats.TotalEdges,
		IslandCount:     stats.IslandCount,
		IslandSizes:     stats.IslandSizes,
		ConnectedCount:  stats.ConnectedCount,
		IsolatedCount:   stats.IsolatedCount,
		AverageDegree:   stats.AverageDegree,
		TopConnected:    make([]queries.ConnectedCategory, 0, len(stats.TopConnected)),
	}
	for _, entry := range stats.TopConnected {
		result.TopConnected = append(result.TopConnected, queries.ConnectedCategory{
			ID:     entry.CategoryID.String(),
			Name:   displayName(entry.CategoryID, report.Names),
			Degree: entry.Degree,
		})
	}
	return result, nil
}

// HandleGetReport renders the analyst-facing text report
func (h *AnalysisQueryHandler) HandleGetReport(ctx context.Context, query queries.GetReportQuery) (*queries.GetReportResult, error) {
	text, report, err := h.analysis.RenderReport(ctx)
	if err != nil {
		return nil, err
	}
	return &queries.GetReportResult{
		SnapshotVersion: report.Version,
		GeneratedAt:     report.GeneratedAt.Format(time.RFC3339),
		Report:          text,
	}, nil
}

func namedCategories(ids []valueobjects.CategoryID, names map[valueobjects.CategoryID]string) []queries.NamedCategory {
	named := make([]queries.NamedCategory, 0, len(ids))
	for _, id := range ids {
		named = append(named, queries.NamedCategory{
			ID:   id.String(),
			Name: displayName(id, names),
		})
	}
	return named
}

func displayName(id valueobjects.CategoryID, names map[valueobjects.CategoryID]string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id.String()
}
