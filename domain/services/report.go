package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"catgraph/domain/core/valueobjects"
)

// AnalysisResult bundles everything one full analysis run produces
type AnalysisResult struct {
	Islands  []Island       `json:"islands"`
	Diameter DiameterResult `json:"diameter"`
	Stats    GraphStats     `json:"stats"`
}

// Analyze runs the full pipeline over one adjacency: islands, diameter
// and aggregate statistics. The island partition is computed once and
// shared.
func (s *GraphAnalyticsService) Analyze(ctx context.Context, adj *Adjacency) (*AnalysisResult, error) {
	islands := s.FindIslands(adj)

	diameter, err := s.diameterOverIslands(ctx, adj, islands)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		Islands:  islands,
		Diameter: diameter,
		Stats:    s.ComputeStats(adj, islands),
	}, nil
}

const reportRule = "================================================================================"

// RenderReport renders the analyst-facing text report. names resolves
// category IDs to display names; IDs missing from it fall back to the
// raw ID string. Island members are listed by name (ID as tie-break)
// and large islands are truncated for readability.
func (s *GraphAnalyticsService) RenderReport(result *AnalysisResult, names map[valueobjects.CategoryID]string) string {
	var b strings.Builder

	writeBanner(&b, "CATEGORY SIMILARITY ANALYSIS - RABBIT HOLES AND ISLANDS")
	b.WriteString("\n")

	if result.Stats.TotalCategories == 0 {
		b.WriteString("No categories found in snapshot.\n")
		return b.String()
	}

	s.renderIslands(&b, result.Islands, names)
	s.renderDiameter(&b, result.Diameter, names)
	s.renderStats(&b, result.Stats, names)

	b.WriteString("\n")
	writeBanner(&b, "Analysis complete")
	return b.String()
}

func (s *GraphAnalyticsService) renderIslands(b *strings.Builder, islands []Island, names map[valueobjects.CategoryID]string) {
	writeBanner(b, "RABBIT ISLANDS (Connected Components)")
	fmt.Fprintf(b, "\nFound %d rabbit islands\n\n", len(islands))

	for i, island := range islands {
		fmt.Fprintf(b, "Island %d: %d categories\n", i+1, island.Size())

		members := make([]valueobjects.CategoryID, len(island.Members))
		copy(members, island.Members)
		sort.Slice(members, func(x, y int) bool {
			nx, ny := displayName(members[x], names), displayName(members[y], names)
			if nx != ny {
				return nx < ny
			}
			return members[x].Less(members[y])
		})

		if len(members) <= s.cfg.IslandDisplayCap {
			for _, member := range members {
				fmt.Fprintf(b, "  - %s (ID: %s)\n", displayName(member, names), member)
			}
		} else {
			for _, member := range members[:s.cfg.IslandDisplayHead] {
				fmt.Fprintf(b, "  - %s (ID: %s)\n", displayName(member, names), member)
			}
			fmt.Fprintf(b, "  ... and %d more categories\n", len(members)-s.cfg.IslandDisplayHead)
		}
		b.WriteString("\n")
	}
}

func (s *GraphAnalyticsService) renderDiameter(b *strings.Builder, diameter DiameterResult, names map[valueobjects.CategoryID]string) {
	writeBanner(b, "LONGEST RABBIT HOLE (Diameter of Similarity Graph)")
	b.WriteString("\n")

	if len(diameter.Path) == 0 {
		b.WriteString("No rabbit holes found (no similar categories exist).\n")
		return
	}

	fmt.Fprintf(b, "Length: %d hops\n", diameter.Length)
	fmt.Fprintf(b, "Path: %s\n", FormatPath(diameter.Path, names))
	b.WriteString("\nDetailed path:\n")
	for i, id := range diameter.Path {
		fmt.Fprintf(b, "  %d. %s (ID: %s)\n", i+1, displayName(id, names), id)
	}
}

func (s *GraphAnalyticsService) renderStats(b *strings.Builder, stats GraphStats, names map[valueobjects.CategoryID]string) {
	b.WriteString("\n")
	writeBanner(b, "STATISTICS")
	b.WriteString("\n")

	fmt.Fprintf(b, "Total categories: %d\n", stats.TotalCategories)
	fmt.Fprintf(b, "Total similarity relationships: %d\n", stats.TotalEdges)
	fmt.Fprintf(b, "Categories with similarities: %d\n", stats.ConnectedCount)
	fmt.Fprintf(b, "Isolated categories: %d\n", stats.IsolatedCount)
	fmt.Fprintf(b, "Average connections per category: %.2f\n", stats.AverageDegree)

	b.WriteString("\nMost connected categories:\n")
	for _, entry := range stats.TopConnected {
		if entry.Degree > 0 {
			fmt.Fprintf(b, "  - %s: %d connections\n", displayName(entry.CategoryID, names), entry.Degree)
		}
	}
}

// FormatPath joins the display names of a path with arrows
func FormatPath(path []valueobjects.CategoryID, names map[valueobjects.CategoryID]string) string {
	if len(path) == 0 {
		return "No path"
	}
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = displayName(id, names)
	}
	return strings.Join(parts, " → ")
}

func displayName(id valueobjects.CategoryID, names map[valueobjects.CategoryID]string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id.String()
}

func writeBanner(b *strings.Builder, title string) {
	b.WriteString(reportRule + "\n")
	b.WriteString(title + "\n")
	b.WriteString(reportRule + "\n")
}
