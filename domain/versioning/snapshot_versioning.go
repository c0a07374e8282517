package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"catgraph/domain/core/aggregates"
	"catgraph/domain/core/valueobjects"
)

// SnapshotVersion identifies one consistent state of the catalog: the
// full category set plus the full similarity edge set. The checksum is
// deterministic for equal snapshots, so analysis results can be cached
// and invalidated by fingerprint.
type SnapshotVersion struct {
	Version       int       `json:"version"`
	Checksum      string    `json:"checksum"`
	CategoryCount int       `json:"category_count"`
	EdgeCount     int       `json:"edge_count"`
	CreatedAt     time.Time `json:"created_at"`
	Description   string    `json:"description"`
	Metadata      Metadata  `json:"metadata"`
}

// Metadata contains additional version information
type Metadata struct {
	Tags       []string               `json:"tags,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Changes    []Change               `json:"changes,omitempty"`
}

// Change represents a change in this version
type Change struct {
	Type        ChangeType `json:"type"`
	EntityID    string     `json:"entity_id"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ChangeType represents the type of change
type ChangeType string

const (
	ChangeTypeCategoryAdded     ChangeType = "category_added"
	ChangeTypeCategoryRemoved   ChangeType = "category_removed"
	ChangeTypeCategoryUpdated   ChangeType = "category_updated"
	ChangeTypeCategoryMoved     ChangeType = "category_moved"
	ChangeTypeSimilarityAdded   ChangeType = "similarity_added"
	ChangeTypeSimilarityRemoved ChangeType = "similarity_removed"
)

// VersioningService fingerprints catalog snapshots
type VersioningService struct {
	maxVersions int
	autoVersion bool
}

// NewVersioningService creates a new versioning service
func NewVersioningService(maxVersions int, autoVersion bool) *VersioningService {
	return &VersioningService{
		maxVersions: maxVersions,
		autoVersion: autoVersion,
	}
}

// CreateVersion fingerprints the supplied taxonomy and edge set
func (s *VersioningService) CreateVersion(
	taxonomy *aggregates.Taxonomy,
	edges []valueobjects.SimilarityEdge,
	description string,
) (*SnapshotVersion, error) {
	if taxonomy == nil {
		return nil, fmt.Errorf("taxonomy cannot be nil")
	}

	checksum, err := s.calculateChecksum(taxonomy, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return &SnapshotVersion{
		Version:       taxonomy.Version(),
		Checksum:      checksum,
		CategoryCount: taxonomy.Size(),
		EdgeCount:     len(edges),
		CreatedAt:     time.Now(),
		Description:   description,
		Metadata: Metadata{
			Tags:       []string{},
			Properties: make(map[string]interface{}),
			Changes:    []Change{},
		},
	}, nil
}

// CompareVersions compares two snapshot versions
func (s *VersioningService) CompareVersions(v1, v2 *SnapshotVersion) (*VersionDiff, error) {
	if v1 == nil || v2 == nil {
		return nil, fmt.Errorf("versions cannot be nil")
	}

	diff := &VersionDiff{
		FromVersion: v1.Version,
		ToVersion:   v2.Version,
		Identical:   v1.Checksum == v2.Checksum,
		CategoriesDiff: CountDiff{
			Added: v2.CategoryCount - v1.CategoryCount,
		},
		EdgesDiff: CountDiff{
			Added: v2.EdgeCount - v1.EdgeCount,
		},
		TimeDiff: v2.CreatedAt.Sub(v1.CreatedAt),
	}

	for _, change := range v2.Metadata.Changes {
		switch change.Type {
		case ChangeTypeCategoryAdded:
			diff.CategoriesDiff.Added++
		case ChangeTypeCategoryRemoved:
			diff.CategoriesDiff.Removed++
		case ChangeTypeCategoryUpdated, ChangeTypeCategoryMoved:
			diff.CategoriesDiff.Updated++
		case ChangeTypeSimilarityAdded:
			diff.EdgesDiff.Added++
		case ChangeTypeSimilarityRemoved:
			diff.EdgesDiff.Removed++
		}
	}

	return diff, nil
}

// calculateChecksum produces a deterministic fingerprint of the snapshot.
// Category identity, name, parent pointer and the canonical edge keys go
// into the hash; map iteration order does not leak in because everything
// is sorted first.
func (s *VersioningService) calculateChecksum(taxonomy *aggregates.Taxonomy, edges []valueobjects.SimilarityEdge) (string, error) {
	type categoryRecord struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Parent string `json:"parent,omitempty"`
	}

	records := make([]categoryRecord, 0, taxonomy.Size())
	for _, category := range taxonomy.Categories() {
		records = append(records, categoryRecord{
			ID:     category.ID().String(),
			Name:   category.Name(),
			Parent: category.ParentID().String(),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	edgeKeys := make([]string, 0, len(edges))
	for _, edge := range edges {
		edgeKeys = append(edgeKeys, edge.Key())
	}
	sort.Strings(edgeKeys)

	data := struct {
		Categories []categoryRecord `json:"categories"`
		Edges      []string         `json:"edges"`
	}{
		Categories: records,
		Edges:      edgeKeys,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// VersionDiff represents the difference between two versions
type VersionDiff struct {
	FromVersion    int           `json:"from_version"`
	ToVersion      int           `json:"to_version"`
	Identical      bool          `json:"identical"`
	CategoriesDiff CountDiff     `json:"categories_diff"`
	EdgesDiff      CountDiff     `json:"edges_diff"`
	TimeDiff       time.Duration `json:"time_diff"`
}

// CountDiff represents entity count changes between versions
type CountDiff struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Updated int `json:"updated"`
}

// VersioningPolicy defines when analysis results must be recomputed
// rather than served from cache
type VersioningPolicy struct {
	AutoVersion          bool          `json:"auto_version"`
	MaxVersions          int           `json:"max_versions"`
	RetentionPeriod      time.Duration `json:"retention_period"`
	VersionOnChangeCount int           `json:"version_on_change_count"`
	VersionOnTimeElapsed time.Duration `json:"version_on_time_elapsed"`
}

// DefaultVersioningPolicy returns the default versioning policy
func DefaultVersioningPolicy() VersioningPolicy {
	return VersioningPolicy{
		AutoVersion:          true,
		MaxVersions:          10,
		RetentionPeriod:      30 * 24 * time.Hour,
		VersionOnChangeCount: 100,
		VersionOnTimeElapsed: 24 * time.Hour,
	}
}

// ShouldCreateVersion determines if a new version should be recorded
func (p *VersioningPolicy) ShouldCreateVersion(
	lastVersion *SnapshotVersion,
	currentCategoryCount int,
	currentTime time.Time,
) bool {
	if !p.AutoVersion {
		return false
	}

	if lastVersion == nil {
		return true
	}

	if abs(currentCategoryCount-lastVersion.CategoryCount) >= p.VersionOnChangeCount {
		return true
	}

	if currentTime.Sub(lastVersion.CreatedAt) >= p.VersionOnTimeElapsed {
		return true
	}

	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
