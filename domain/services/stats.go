package services

import (
	"sort"

	"catgraph/domain/core/valueobjects"
)

// DegreeEntry pairs a category with its similarity degree
type DegreeEntry struct {
	CategoryID valueobjects.CategoryID `json:"category_id"`
	Degree     int                     `json:"degree"`
}

// GraphStats aggregates the headline numbers of one analysis run
type GraphStats struct {
	TotalCategories int           `json:"total_categories"`
	TotalEdges      int           `json:"total_edges"`
	IslandCount     int           `json:"island_count"`
	IslandSizes     []int         `json:"island_sizes"`
	ConnectedCount  int           `json:"connected_count"`
	IsolatedCount   int           `json:"isolated_count"`
	AverageDegree   float64       `json:"average_degree"`
	TopConnected    []DegreeEntry `json:"top_connected"`
}

// ComputeStats derives the aggregate view from the adjacency and the
// island partition. The top-connected ranking is sorted by degree
// descending with ties broken by ascending ID and capped at the
// configured K. Average degree is 2E/V; an empty universe yields 0.
func (s *GraphAnalyticsService) ComputeStats(adj *Adjacency, islands []Island) GraphStats {
	stats := GraphStats{
		TotalCategories: adj.Size(),
		TotalEdges:      adj.EdgeCount(),
		IslandCount:     len(islands),
		IslandSizes:     make([]int, 0, len(islands)),
	}

	for _, island := range islands {
		stats.IslandSizes = append(stats.IslandSizes, island.Size())
	}

	entries := make([]DegreeEntry, 0, adj.Size())
	for _, id := range adj.ids {
		degree := len(adj.neighbors[id])
		entries = append(entries, DegreeEntry{CategoryID: id, Degree: degree})
		if degree == 0 {
			stats.IsolatedCount++
		}
	}
	stats.ConnectedCount = stats.TotalCategories - stats.IsolatedCount

	if stats.TotalCategories > 0 {
		stats.AverageDegree = float64(2*stats.TotalEdges) / float64(stats.TotalCategories)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Degree != entries[j].Degree {
			return entries[i].Degree > entries[j].Degree
		}
		return entries[i].CategoryID.Less(entries[j].CategoryID)
	})

	topK := s.cfg.TopConnectedCount
	if topK > len(entries) {
		topK = len(entries)
	}
	stats.TopConnected = entries[:topK]

	return stats
}
