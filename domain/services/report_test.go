package services

import (
	"context"
	"strings"
	"testing"

	"catgraph/domain/core/valueobjects"
)

func TestComputeStats(t *testing.T) {
	service := NewGraphAnalyticsService(nil)
	adj := buildAdjacency(t, 5, [][2]int{{1, 2}, {2, 3}, {2, 4}})
	islands := service.FindIslands(adj)

	stats := service.ComputeStats(adj, islands)

	if stats.TotalCategories != 5 || stats.TotalEdges != 3 {
		t.Errorf("totals = %d/%d, want 5/3", stats.TotalCategories, stats.TotalEdges)
	}
	if stats.IslandCount != 2 {
		t.Errorf("IslandCount = %d, want 2", stats.IslandCount)
	}
	if stats.IsolatedCount != 1 {
		t.Errorf("IsolatedCount = %d, want 1", stats.IsolatedCount)
	}
	if stats.ConnectedCount != 4 {
		t.Errorf("ConnectedCount = %d, want 4", stats.ConnectedCount)
	}
	if want := float64(2*3) / float64(5); stats.AverageDegree != want {
		t.Errorf("AverageDegree = %f, want %f", stats.AverageDegree, want)
	}

	if len(stats.TopConnected) != 5 {
		t.Fatalf("TopConnected = %d entries, want 5", len(stats.TopConnected))
	}
	if !stats.TopConnected[0].CategoryID.Equals(testID(t, 2)) || stats.TopConnected[0].Degree != 3 {
		t.Errorf("top entry = %v, want category 2 with degree 3", stats.TopConnected[0])
	}
	// Degree-1 nodes tie; ascending ID breaks it.
	if !stats.TopConnected[1].CategoryID.Equals(testID(t, 1)) {
		t.Errorf("tie-break by ID failed: %v", stats.TopConnected[1])
	}
}

func TestComputeStats_EmptyUniverse(t *testing.T) {
	service := NewGraphAnalyticsService(nil)
	adj, err := BuildAdjacency(nil, nil)
	if err != nil {
		t.Fatalf("BuildAdjacency() error = %v", err)
	}

	stats := service.ComputeStats(adj, service.FindIslands(adj))
	if stats.AverageDegree != 0 {
		t.Errorf("AverageDegree = %f, want 0", stats.AverageDegree)
	}
	if stats.TotalCategories != 0 || stats.IslandCount != 0 {
		t.Errorf("empty universe stats = %+v", stats)
	}
}

func testNames(t *testing.T, pairs map[int]string) map[valueobjects.CategoryID]string {
	t.Helper()
	names := make(map[valueobjects.CategoryID]string, len(pairs))
	for n, name := range pairs {
		names[testID(t, n)] = name
	}
	return names
}

func TestRenderReport(t *testing.T) {
	service := NewGraphAnalyticsService(nil)
	adj := buildAdjacency(t, 4, [][2]int{{1, 2}, {2, 3}})
	names := testNames(t, map[int]string{1: "Algebra", 2: "Geometry", 3: "Topology", 4: "Cooking"})

	result, err := service.Analyze(context.Background(), adj)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	report := service.RenderReport(result, names)

	wantFragments := []string{
		"RABBIT ISLANDS (Connected Components)",
		"Found 2 rabbit islands",
		"Island 1: 3 categories",
		"Island 2: 1 categories",
		"LONGEST RABBIT HOLE (Diameter of Similarity Graph)",
		"Length: 2 hops",
		"Path: Algebra → Geometry → Topology",
		"Total categories: 4",
		"Total similarity relationships: 2",
		"Categories with similarities: 3",
		"Isolated categories: 1",
		"Average connections per category: 1.00",
		"Most connected categories:",
		"  - Geometry: 2 connections",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(report, fragment) {
			t.Errorf("report missing %q\n---\n%s", fragment, report)
		}
	}

	// Members listed by display name: Algebra before Geometry before
	// Topology inside island 1.
	algebra := strings.Index(report, "- Algebra")
	geometry := strings.Index(report, "- Geometry (")
	if algebra == -1 || geometry == -1 || algebra > geometry {
		t.Errorf("island members not sorted by name:\n%s", report)
	}
}

func TestRenderReport_TruncatesLargeIslands(t *testing.T) {
	service := NewGraphAnalyticsService(nil)

	pairs := make([][2]int, 0, 24)
	for i := 1; i < 25; i++ {
		pairs = append(pairs, [2]int{i, i + 1})
	}
	adj := buildAdjacency(t, 25, pairs)

	result, err := service.Analyze(context.Background(), adj)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	report := service.RenderReport(result, nil)

	if !strings.Contains(report, "... and 15 more categories") {
		t.Errorf("report should truncate a 25-member island:\n%s", report)
	}

	// Island member lines carry "(ID: ...)"; the stats ranking does not.
	memberLines := 0
	for _, line := range strings.Split(report, "\n") {
		if strings.HasPrefix(line, "  - ") && strings.Contains(line, "(ID: ") {
			memberLines++
		}
	}
	if memberLines != 10 {
		t.Errorf("island listing shows %d members, want 10", memberLines)
	}
}

func TestRenderReport_EmptySnapshot(t *testing.T) {
	service := NewGraphAnalyticsService(nil)
	adj, err := BuildAdjacency(nil, nil)
	if err != nil {
		t.Fatalf("BuildAdjacency() error = %v", err)
	}

	result, err := service.Analyze(context.Background(), adj)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	report := service.RenderReport(result, nil)

	if !strings.Contains(report, "No categories found in snapshot.") {
		t.Errorf("empty snapshot report = %q", report)
	}
}

func TestRenderReport_NoEdges(t *testing.T) {
	service := NewGraphAnalyticsService(nil)
	adj := buildAdjacency(t, 2, nil)

	result, err := service.Analyze(context.Background(), adj)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	report := service.RenderReport(result, nil)

	if !strings.Contains(report, "No rabbit holes found (no similar categories exist).") {
		t.Errorf("edge-less report should state no rabbit holes:\n%s", report)
	}
}

func TestFormatPath(t *testing.T) {
	names := testNames(t, map[int]string{1: "A", 2: "B"})
	path := []valueobjects.CategoryID{testID(t, 1), testID(t, 2)}

	if got := FormatPath(path, names); got != "A → B" {
		t.Errorf("FormatPath() = %q", got)
	}
	if got := FormatPath(nil, names); got != "No path" {
		t.Errorf("FormatPath(nil) = %q", got)
	}
	// Unnamed IDs fall back to the raw ID.
	raw := []valueobjects.CategoryID{testID(t, 9)}
	if got := FormatPath(raw, names); got != testID(t, 9).String() {
		t.Errorf("FormatPath(unnamed) = %q", got)
	}
}
