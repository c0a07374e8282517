package queries

import (
	"time"

	"catgraph/domain/core/entities"
)

// CategoryView is the read-model shape of a category shared by every
// catalog query result
type CategoryView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	IsRoot      bool   `json:"is_root"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// NewCategoryView maps a category entity onto the read model
func NewCategoryView(category *entities.Category) CategoryView {
	view := CategoryView{
		ID:          category.ID().String(),
		Name:        category.Name(),
		Description: category.Label().Description(),
		ImageURL:    category.ImageURL(),
		IsRoot:      category.IsRoot(),
		Version:     category.Version(),
		CreatedAt:   category.CreatedAt().Format(time.RFC3339),
		UpdatedAt:   category.UpdatedAt().Format(time.RFC3339),
	}
	if !category.IsRoot() {
		view.ParentID = category.ParentID().String()
	}
	return view
}

// NewCategoryViews maps a slice of entities preserving order
func NewCategoryViews(categories []*entities.Category) []CategoryView {
	views := make([]CategoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, NewCategoryView(category))
	}
	return views
}
