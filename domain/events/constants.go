package events

// Event sources identify where events originate from
const (
	// SourceCatalog is the primary catalog service source
	SourceCatalog = "catgraph.catalog"

	// SourceAnalyzer is the offline analysis CLI source
	SourceAnalyzer = "catgraph.analyzer"
)
