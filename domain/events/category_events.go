package events

import (
	"time"

	"catgraph/domain/core/valueobjects"
)

// Category Events

// CategoryCreated is raised when a new category is created
type CategoryCreated struct {
	BaseEvent
	CategoryID valueobjects.CategoryID `json:"category_id"`
	Name       string                  `json:"name"`
	ParentID   string                  `json:"parent_id,omitempty"`
}

// NewCategoryCreated creates a CategoryCreated event
func NewCategoryCreated(id valueobjects.CategoryID, name string, parentID valueobjects.CategoryID, timestamp time.Time) CategoryCreated {
	return CategoryCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "category.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		CategoryID: id,
		Name:       name,
		ParentID:   parentID.String(),
	}
}

// CategoryRelabeled is raised when a category's name or description changes
type CategoryRelabeled struct {
	BaseEvent
	CategoryID valueobjects.CategoryID `json:"category_id"`
	OldName    string                  `json:"old_name"`
	NewName    string                  `json:"new_name"`
}

// NewCategoryRelabeled creates a CategoryRelabeled event
func NewCategoryRelabeled(id valueobjects.CategoryID, oldName, newName string, timestamp time.Time) CategoryRelabeled {
	return CategoryRelabeled{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "category.relabeled",
			Timestamp:   timestamp,
			Version:     1,
		},
		CategoryID: id,
		OldName:    oldName,
		NewName:    newName,
	}
}

// CategoryMoved is raised when a category is re-parented.
// An empty parent ID means the category became (or left) a root.
type CategoryMoved struct {
	BaseEvent
	CategoryID  valueobjects.CategoryID `json:"category_id"`
	OldParentID string                  `json:"old_parent_id,omitempty"`
	NewParentID string                  `json:"new_parent_id,omitempty"`
}

// NewCategoryMoved creates a CategoryMoved event
func NewCategoryMoved(id, oldParent, newParent valueobjects.CategoryID, timestamp time.Time) CategoryMoved {
	return CategoryMoved{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "category.moved",
			Timestamp:   timestamp,
			Version:     1,
		},
		CategoryID:  id,
		OldParentID: oldParent.String(),
		NewParentID: newParent.String(),
	}
}

// CategoryDeleted is raised when a category is removed from the catalog.
// Children listed in AdoptedChildren were re-parented to the deleted
// category's own parent.
type CategoryDeleted struct {
	BaseEvent
	CategoryID      valueobjects.CategoryID   `json:"category_id"`
	Name            string                    `json:"name"`
	AdoptedChildren []valueobjects.CategoryID `json:"adopted_children,omitempty"`
	RemovedEdges    int                       `json:"removed_edges"`
}

// NewCategoryDeleted creates a CategoryDeleted event
func NewCategoryDeleted(id valueobjects.CategoryID, name string, adopted []valueobjects.CategoryID, removedEdges int, timestamp time.Time) CategoryDeleted {
	return CategoryDeleted{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "category.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		CategoryID:      id,
		Name:            name,
		AdoptedChildren: adopted,
		RemovedEdges:    removedEdges,
	}
}

// Similarity Events

// CategoriesLinked is raised when a similarity edge is created
type CategoriesLinked struct {
	BaseEvent
	FirstID  valueobjects.CategoryID `json:"first_id"`
	SecondID valueobjects.CategoryID `json:"second_id"`
}

// NewCategoriesLinked creates a CategoriesLinked event from a canonical edge
func NewCategoriesLinked(edge valueobjects.SimilarityEdge, timestamp time.Time) CategoriesLinked {
	return CategoriesLinked{
		BaseEvent: BaseEvent{
			AggregateID: edge.First().String(),
			EventType:   "categories.linked",
			Timestamp:   timestamp,
			Version:     1,
		},
		FirstID:  edge.First(),
		SecondID: edge.Second(),
	}
}

// CategoriesUnlinked is raised when a similarity edge is removed
type CategoriesUnlinked struct {
	BaseEvent
	FirstID  valueobjects.CategoryID `json:"first_id"`
	SecondID valueobjects.CategoryID `json:"second_id"`
}

// NewCategoriesUnlinked creates a CategoriesUnlinked event from a canonical edge
func NewCategoriesUnlinked(edge valueobjects.SimilarityEdge, timestamp time.Time) CategoriesUnlinked {
	return CategoriesUnlinked{
		BaseEvent: BaseEvent{
			AggregateID: edge.First().String(),
			EventType:   "categories.unlinked",
			Timestamp:   timestamp,
			Version:     1,
		},
		FirstID:  edge.First(),
		SecondID: edge.Second(),
	}
}

// Analysis Events

// AnalysisCompleted is raised after a full graph analysis run
type AnalysisCompleted struct {
	BaseEvent
	AnalysisID     string        `json:"analysis_id"`
	CategoryCount  int           `json:"category_count"`
	EdgeCount      int           `json:"edge_count"`
	IslandCount    int           `json:"island_count"`
	DiameterLength int           `json:"diameter_length"`
	Duration       time.Duration `json:"duration"`
}

// NewAnalysisCompleted creates an AnalysisCompleted event
func NewAnalysisCompleted(analysisID string, categories, edges, islands, diameterLength int, duration time.Duration, timestamp time.Time) AnalysisCompleted {
	return AnalysisCompleted{
		BaseEvent: BaseEvent{
			AggregateID: analysisID,
			EventType:   "analysis.completed",
			Timestamp:   timestamp,
			Version:     1,
		},
		AnalysisID:     analysisID,
		CategoryCount:  categories,
		EdgeCount:      edges,
		IslandCount:    islands,
		DiameterLength: diameterLength,
		Duration:       duration,
	}
}
