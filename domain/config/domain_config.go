package config

import "errors"

var (
	ErrInvalidNameBounds    = errors.New("name length bounds are inconsistent")
	ErrInvalidDepthBound    = errors.New("max hierarchy depth must be at least 1")
	ErrInvalidDisplayBounds = errors.New("island display head exceeds display cap")
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Catalog constraints
	MaxNameLength        int
	MinNameLength        int
	MaxDescriptionLength int

	// Hierarchy constraints
	// MaxHierarchyDepth bounds every ancestor walk: exceeding it means the
	// parent chain in the snapshot is corrupted, and the walk fails instead
	// of looping.
	MaxHierarchyDepth int

	// Analysis limits
	TopConnectedCount int // entries in the most-connected ranking
	IslandDisplayCap  int // islands larger than this are truncated in reports
	IslandDisplayHead int // members shown when an island is truncated
	DiameterWorkers   int // BFS fan-out; 0 = min(GOMAXPROCS, 8), 1 = serial

	// Bulk operation limits
	MaxBulkSimilarities int

	// Validation settings
	AllowSelfSimilarity      bool
	AllowDuplicateSimilarity bool

	// Feature flags
	EnableParallelDiameter bool
	EnableAnalysisCache    bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Catalog constraints
		MaxNameLength:        120,
		MinNameLength:        1,
		MaxDescriptionLength: 2000,

		// Hierarchy constraints
		MaxHierarchyDepth: 100,

		// Analysis limits
		TopConnectedCount: 5,
		IslandDisplayCap:  20,
		IslandDisplayHead: 10,
		DiameterWorkers:   0,

		// Bulk operation limits
		MaxBulkSimilarities: 100,

		// Validation settings
		AllowSelfSimilarity:      false,
		AllowDuplicateSimilarity: false,

		// Feature flags
		EnableParallelDiameter: true,
		EnableAnalysisCache:    true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Tighter bulk limits for production
	config.MaxBulkSimilarities = 50
	config.MaxHierarchyDepth = 50

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxBulkSimilarities = 1000
	config.MaxHierarchyDepth = 1000
	config.EnableAnalysisCache = false

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MinNameLength < 1 || c.MaxNameLength < c.MinNameLength {
		return ErrInvalidNameBounds
	}
	if c.MaxHierarchyDepth < 1 {
		return ErrInvalidDepthBound
	}
	if c.IslandDisplayHead > c.IslandDisplayCap {
		return ErrInvalidDisplayBounds
	}
	return nil
}
