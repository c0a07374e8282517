package queries

import "errors"

// Analysis queries run over one consistent snapshot of the catalog and
// the similarity edge set. Results are cached by the analysis service
// keyed on a snapshot checksum, not by the query bus: a catalog
// mutation changes the checksum and the next query recomputes, so no
// invalidation hooks are needed.

// NamedCategory pairs an ID with its resolved display name
type NamedCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetIslandsQuery requests the connected components of the similarity
// graph
type GetIslandsQuery struct{}

// Validate validates the GetIslandsQuery
func (q GetIslandsQuery) Validate() error {
	return nil
}

// IslandView is one connected component with resolved names
type IslandView struct {
	Size    int             `json:"size"`
	Members []NamedCategory `json:"members"`
}

// GetIslandsResult lists the islands sorted by size descending
type GetIslandsResult struct {
	SnapshotVersion string       `json:"snapshot_version"`
	Count           int          `json:"count"`
	Islands         []IslandView `json:"islands"`
}

// GetDiameterQuery requests the longest shortest path in the
// similarity graph
type GetDiameterQuery struct{}

// Validate validates the GetDiameterQuery
func (q GetDiameterQuery) Validate() error {
	return nil
}

// GetDiameterResult is the diameter path. An empty path with zero
// length means no island has two or more members.
type GetDiameterResult struct {
	SnapshotVersion string          `json:"snapshot_version"`
	Length          int             `json:"length"`
	Path            []NamedCategory `json:"path"`
	PathDisplay     string          `json:"path_display"`
}

// GetShortestPathQuery requests a minimum-hop path between two
// categories
type GetShortestPathQuery struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate validates the GetShortestPathQuery
func (q GetShortestPathQuery) Validate() error {
	if q.From == "" {
		return errors.New("from category ID is required")
	}
	if q.To == "" {
		return errors.New("to category ID is required")
	}
	return nil
}

// GetShortestPathResult is a point-to-point path answer. Found false
// means the two categories live on different islands; that is a
// legitimate outcome, not an error.
type GetShortestPathResult struct {
	SnapshotVersion string          `json:"snapshot_version"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Found           bool            `json:"found"`
	Length          int             `json:"length"`
	Path            []NamedCategory `json:"path,omitempty"`
	PathDisplay     string          `json:"path_display,omitempty"`
}

// GetStatsQuery requests the aggregate view of the similarity graph
type GetStatsQuery struct{}

// Validate validates the GetStatsQuery
func (q GetStatsQuery) Validate() error {
	return nil
}

// ConnectedCategory is one entry of the most-connected ranking
type ConnectedCategory struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Degree int    `json:"degree"`
}

// GetStatsResult is the aggregate similarity-graph view
type GetStatsResult struct {
	SnapshotVersion string              `json:"snapshot_version"`
	TotalCategories int                 `json:"total_categories"`
	TotalEdges      int                 `json:"total_edges"`
	IslandCount     int                 `json:"island_count"`
	IslandSizes     []int               `json:"island_sizes"`
	ConnectedCount  int                 `json:"connected_count"`
	IsolatedCount   int                 `json:"isolated_count"`
	AverageDegree   float64             `json:"average_degree"`
	TopConnected    []ConnectedCategory `json:"top_connected"`
}

// GetReportQuery requests the analyst-facing text report
type GetReportQuery struct{}

// Validate validates the GetReportQuery
func (q GetReportQuery) Validate() error {
	return nil
}

// GetReportResult carries the rendered text report
type GetReportResult struct {
	SnapshotVersion string `json:"snapshot_version"`
	GeneratedAt     string `json:"generated_at"`
	Report          string `json:"report"`
}
