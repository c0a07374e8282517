package entities

import (
	"time"

	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"
)

// Category is the main entity of the catalog: a named node in the
// hierarchy tree. A zero parent ID marks a root.
// This is a rich domain model with encapsulated business logic
type Category struct {
	// Private fields ensure encapsulation
	id        valueobjects.CategoryID
	label     valueobjects.CategoryLabel
	parentID  valueobjects.CategoryID
	imageURL  string
	createdAt time.Time
	updatedAt time.Time
	version   int

	// Domain events that occurred during this entity's lifetime
	events []events.DomainEvent
}

// NewCategory creates a new category with full business rule validation.
// A zero parent creates a root category.
func NewCategory(label valueobjects.CategoryLabel, parent valueobjects.CategoryID) (*Category, error) {
	return NewCategoryWithID(valueobjects.NewCategoryID(), label, parent)
}

// NewCategoryWithID creates a new category under a caller-chosen identity.
// The API layer assigns IDs up front so it can answer with the ID without
// waiting on a read back.
func NewCategoryWithID(id valueobjects.CategoryID, label valueobjects.CategoryLabel, parent valueobjects.CategoryID) (*Category, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("category ID cannot be empty")
	}
	if label.IsZero() {
		return nil, pkgerrors.NewValidationError("category label cannot be empty")
	}

	now := time.Now()
	category := &Category{
		id:        id,
		label:     label,
		parentID:  parent,
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	category.addEvent(events.NewCategoryCreated(category.id, label.Name(), parent, now))

	return category, nil
}

// ReconstructCategory reconstructs a category from repository data with
// preserved identity, timestamps and version
func ReconstructCategory(
	id valueobjects.CategoryID,
	label valueobjects.CategoryLabel,
	parent valueobjects.CategoryID,
	imageURL string,
	createdAt, updatedAt time.Time,
	version int,
) (*Category, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("category ID cannot be empty")
	}
	if label.IsZero() {
		return nil, pkgerrors.NewValidationError("category label cannot be empty")
	}
	if version < 1 {
		version = 1
	}

	return &Category{
		id:        id,
		label:     label,
		parentID:  parent,
		imageURL:  imageURL,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the category's unique identifier
func (c *Category) ID() valueobjects.CategoryID {
	return c.id
}

// Label returns the category's label
func (c *Category) Label() valueobjects.CategoryLabel {
	return c.label
}

// Name returns the category's display name
func (c *Category) Name() string {
	return c.label.Name()
}

// ParentID returns the parent category ID; zero for roots
func (c *Category) ParentID() valueobjects.CategoryID {
	return c.parentID
}

// IsRoot reports whether the category has no parent
func (c *Category) IsRoot() bool {
	return c.parentID.IsZero()
}

// ImageURL returns the optional image location
func (c *Category) ImageURL() string {
	return c.imageURL
}

// Version returns the category's version for optimistic locking
func (c *Category) Version() int {
	return c.version
}

// CreatedAt returns when the category was created
func (c *Category) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns when the category was last updated
func (c *Category) UpdatedAt() time.Time {
	return c.updatedAt
}

// Relabel updates the category's name and description with validation
func (c *Category) Relabel(label valueobjects.CategoryLabel) error {
	if label.IsZero() {
		return pkgerrors.NewValidationError("category label cannot be empty")
	}

	if label.Equals(c.label) {
		return nil // No change needed
	}

	oldName := c.label.Name()
	c.label = label
	c.updatedAt = time.Now()
	c.version++

	c.addEvent(events.NewCategoryRelabeled(c.id, oldName, label.Name(), c.updatedAt))

	return nil
}

// SetImage updates the optional image location
func (c *Category) SetImage(url string) {
	if url == c.imageURL {
		return
	}
	c.imageURL = url
	c.updatedAt = time.Now()
	c.version++
}

// MoveTo re-parents the category. It enforces only local rules; cycle
// and descendant checks need tree knowledge and live on the Taxonomy
// aggregate, which must be consulted before calling this.
func (c *Category) MoveTo(newParent valueobjects.CategoryID) error {
	if newParent.Equals(c.id) {
		return pkgerrors.ErrSelfParent
	}

	if newParent.Equals(c.parentID) {
		return nil // No movement needed
	}

	oldParent := c.parentID
	c.parentID = newParent
	c.updatedAt = time.Now()
	c.version++

	c.addEvent(events.NewCategoryMoved(c.id, oldParent, newParent, c.updatedAt))

	return nil
}

// MakeRoot detaches the category from its parent
func (c *Category) MakeRoot() error {
	return c.MoveTo(valueobjects.CategoryID{})
}

// GetUncommittedEvents returns all uncommitted domain events
func (c *Category) GetUncommittedEvents() []events.DomainEvent {
	return c.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (c *Category) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (c *Category) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}
